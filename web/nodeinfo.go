package web

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/teamgold/golden/db"
	"github.com/teamgold/golden/util"
)

// WellKnownNodeInfo represents the /.well-known/nodeinfo response
type WellKnownNodeInfo struct {
	Links []NodeInfoLink `json:"links"`
}

type NodeInfoLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// GetNodeInfo20 returns a NodeInfo 2.0 JSON response
// See: https://nodeinfo.diaspora.software/schema.html
func GetNodeInfo20(conf *util.AppConfig) string {
	database := db.GetDB()

	totalAuthors, err := database.CountLocalAuthors()
	if err != nil {
		log.Printf("Failed to count authors: %v", err)
		totalAuthors = 0
	}

	localPosts, err := database.CountLocalEntries()
	if err != nil {
		log.Printf("Failed to count local entries: %v", err)
		localPosts = 0
	}

	return fmt.Sprintf(`{
  "version": "2.0",
  "software": {
    "name": "%s",
    "version": "%s"
  },
  "protocols": ["activitypub"],
  "services": {
    "outbound": [],
    "inbound": []
  },
  "usage": {
    "users": {
      "total": %d
    },
    "localPosts": %d
  },
  "openRegistrations": true,
  "metadata": {
    "nodeName": "%s"
  }
}`,
		util.Name,
		util.GetVersion(),
		totalAuthors,
		localPosts,
		util.Name,
	)
}

// GetWellKnownNodeInfo returns the /.well-known/nodeinfo discovery document
func GetWellKnownNodeInfo(conf *util.AppConfig) string {
	wellKnown := WellKnownNodeInfo{
		Links: []NodeInfoLink{
			{
				Rel:  "http://nodeinfo.diaspora.software/ns/schema/2.0",
				Href: conf.Conf.SiteUrl + "/nodeinfo/2.0",
			},
		},
	}

	jsonBytes, err := json.Marshal(wellKnown)
	if err != nil {
		log.Printf("Failed to marshal well-known nodeinfo: %v", err)
		return "{}"
	}

	return string(jsonBytes)
}
