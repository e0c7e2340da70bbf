package web

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/feeds"
	"github.com/teamgold/golden/db"
	"github.com/teamgold/golden/util"
)

const rssPageSize = 50

// GetRSS renders an author's public entries as an RSS feed.
func GetRSS(conf *util.AppConfig, username string) (string, error) {
	database := db.GetDB()

	err, author := database.ReadAuthorByUsername(username)
	if err != nil {
		log.Printf("rss: unknown author %s: %v", username, err)
		return "", errors.New("unknown author")
	}

	err, entries := database.ReadPublicEntriesByAuthor(author.FQID, rssPageSize, 0)
	if err != nil {
		log.Printf("rss: entries for %s: %v", username, err)
		return "", errors.New("error retrieving entries")
	}

	displayName := author.DisplayName
	if displayName == "" {
		displayName = author.Username
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - %s", util.Name, displayName),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/feed?author=%s", conf.Conf.SiteUrl, author.Username)},
		Description: fmt.Sprintf("public entries by %s", author.Username),
		Author:      &feeds.Author{Name: displayName, Email: fmt.Sprintf("%s@%s", author.Username, util.Name)},
		Created:     time.Now(),
	}

	var feedItems []*feeds.Item
	for _, entry := range *entries {
		feedItems = append(feedItems, &feeds.Item{
			Id:      entry.FQID,
			Title:   entry.Title,
			Link:    &feeds.Link{Href: entry.FQID},
			Content: entry.Content,
			Author:  &feeds.Author{Name: displayName},
			Created: entry.Published,
		})
	}

	feed.Items = feedItems
	return feed.ToRss()
}
