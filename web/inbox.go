package web

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/teamgold/golden/db"
	"github.com/teamgold/golden/domain"
	"github.com/teamgold/golden/util"
)

// HandleInbox receives one activity POSTed by a peer node and appends it,
// unprocessed, to the addressed author's inbox. The payload is stored raw;
// interpretation happens later in the processor. Returns 202 on success.
func HandleInbox(c *gin.Context, conf *util.AppConfig) {
	authorId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown author"})
		return
	}

	database := db.GetDB()
	err, author := database.ReadAuthorById(authorId)
	if err != nil || !author.Local {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown author"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	// The envelope must at least be JSON naming a verb; object decoding is
	// tolerant and never rejects here.
	var activity domain.Activity
	if err := json.Unmarshal(body, &activity); err != nil || activity.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed activity"})
		return
	}

	item := &domain.InboxItem{
		Id:         uuid.New(),
		AuthorFQID: author.FQID,
		RawJSON:    string(body),
		Processed:  false,
		ReceivedAt: time.Now().UTC(),
	}
	if err := database.CreateInboxItem(item); err != nil {
		log.Printf("inbox: append for %s failed: %v", author.FQID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// HandleGetInbox returns the author's queued activities, newest first.
func HandleGetInbox(c *gin.Context, conf *util.AppConfig) {
	authorId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown author"})
		return
	}

	database := db.GetDB()
	err, author := database.ReadAuthorById(authorId)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown author"})
		return
	}

	page, size := ParsePageParams(c)
	err, items := database.ReadInboxByAuthor(author.FQID, size, pageOffset(page, size))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	type inboxItem struct {
		Id         uuid.UUID       `json:"id"`
		Activity   json.RawMessage `json:"activity"`
		Processed  bool            `json:"processed"`
		ReceivedAt time.Time       `json:"receivedAt"`
	}
	out := make([]inboxItem, 0, len(*items))
	for _, item := range *items {
		out = append(out, inboxItem{
			Id:         item.Id,
			Activity:   json.RawMessage(item.RawJSON),
			Processed:  item.Processed,
			ReceivedAt: item.ReceivedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "size": size, "items": out})
}
