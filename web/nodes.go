package web

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/teamgold/golden/db"
	"github.com/teamgold/golden/domain"
	"github.com/teamgold/golden/util"
	"golang.org/x/crypto/bcrypt"
)

type nodeResponse struct {
	Id         uuid.UUID `json:"id"`
	BaseURL    string    `json:"baseUrl"`
	Host       string    `json:"host"`
	AuthUser   string    `json:"authUser,omitempty"`
	SharedUser string    `json:"sharedUser,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
}

func nodeToResponse(n *domain.Node) nodeResponse {
	return nodeResponse{
		Id:         n.Id,
		BaseURL:    n.BaseURL,
		Host:       n.Host,
		AuthUser:   n.AuthUser,
		SharedUser: n.SharedUser,
		Active:     n.Active,
		CreatedAt:  n.CreatedAt,
	}
}

// HandleCreateNode registers a federation peer. The caller supplies the
// credentials we present outbound; the shared credentials the peer must
// present to us are generated here and returned exactly once — only their
// bcrypt hash is stored.
func HandleCreateNode(c *gin.Context, conf *util.AppConfig) {
	var req struct {
		BaseURL  string `json:"baseUrl"`
		AuthUser string `json:"authUser"`
		AuthPass string `json:"authPass"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || util.FQIDHost(req.BaseURL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid baseUrl required"})
		return
	}

	sharedUser := "node-" + util.RandomString(4)
	sharedPass := util.RandomString(16)
	hash, err := bcrypt.GenerateFromPassword([]byte(sharedPass), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "credential generation failed"})
		return
	}

	node := &domain.Node{
		Id:             uuid.New(),
		BaseURL:        util.NormalizeFQID(req.BaseURL),
		Host:           util.FQIDHost(req.BaseURL),
		AuthUser:       req.AuthUser,
		AuthPass:       req.AuthPass,
		SharedUser:     sharedUser,
		SharedPassHash: string(hash),
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.GetDB().CreateNode(node); err != nil {
		log.Printf("nodes: create %s: %v", node.BaseURL, err)
		c.JSON(http.StatusConflict, gin.H{"error": "node already registered"})
		return
	}

	resp := nodeToResponse(node)
	c.JSON(http.StatusCreated, gin.H{
		"node":       resp,
		"sharedUser": sharedUser,
		"sharedPass": sharedPass,
	})
}

// HandleListNodes returns all registered peers, secrets omitted.
func HandleListNodes(c *gin.Context, conf *util.AppConfig) {
	err, nodes := db.GetDB().ReadAllNodes()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	out := make([]nodeResponse, 0, len(*nodes))
	for i := range *nodes {
		resp := nodeToResponse(&(*nodes)[i])
		resp.AuthUser = ""
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

// HandleSetNodeActive toggles a peer on or off without forgetting its
// credentials.
func HandleSetNodeActive(c *gin.Context, conf *util.AppConfig) {
	nodeId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown node"})
		return
	}
	var req struct {
		Active *bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "active flag required"})
		return
	}
	if err := db.GetDB().UpdateNodeActive(nodeId, *req.Active); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": *req.Active})
}

// HandleDeleteNode removes a peer entirely.
func HandleDeleteNode(c *gin.Context, conf *util.AppConfig) {
	nodeId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown node"})
		return
	}
	if err := db.GetDB().DeleteNode(nodeId); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.Status(http.StatusNoContent)
}
