package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/teamgold/golden/activitypub"
	"github.com/teamgold/golden/db"
	"github.com/teamgold/golden/domain"
	"github.com/teamgold/golden/util"
)

type entryResponse struct {
	Id          uuid.UUID  `json:"id"`
	FQID        string     `json:"fqid"`
	Author      string     `json:"author"`
	Title       string     `json:"title,omitempty"`
	Content     string     `json:"content,omitempty"`
	ContentType string     `json:"contentType,omitempty"`
	Visibility  string     `json:"visibility"`
	Published   time.Time  `json:"published"`
	Updated     *time.Time `json:"updated,omitempty"`
}

func entryToResponse(e *domain.Entry) entryResponse {
	return entryResponse{
		Id:          e.Id,
		FQID:        e.FQID,
		Author:      e.AuthorFQID,
		Title:       e.Title,
		Content:     e.Content,
		ContentType: e.ContentType,
		Visibility:  e.Visibility,
		Published:   e.Published,
		Updated:     e.Updated,
	}
}

func validVisibility(v string) bool {
	switch v {
	case domain.VisibilityPublic, domain.VisibilityUnlisted, domain.VisibilityFriends:
		return true
	}
	return false
}

// entryFromPath resolves the :eid token under the path author.
func entryFromPath(c *gin.Context, author *domain.Author) *domain.Entry {
	fqid := author.FQID + "/posts/" + c.Param("eid")
	err, entry := db.GetDB().ReadEntryByFQID(fqid)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown entry"})
		return nil
	}
	return entry
}

// HandleCreateEntry persists a new entry and fans the Create activity out
// according to its visibility.
func HandleCreateEntry(c *gin.Context, conf *util.AppConfig, dist *activitypub.Distributor) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}

	var req struct {
		Title       string `json:"title"`
		Content     string `json:"content"`
		ContentType string `json:"contentType"`
		Visibility  string `json:"visibility"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	req.Visibility = strings.ToUpper(req.Visibility)
	if req.Visibility == "" {
		req.Visibility = domain.VisibilityPublic
	}
	if !validVisibility(req.Visibility) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visibility"})
		return
	}

	entry := &domain.Entry{
		Id:          uuid.New(),
		FQID:        util.MintFQID(author.FQID, "posts"),
		AuthorFQID:  author.FQID,
		Title:       req.Title,
		Content:     req.Content,
		ContentType: req.ContentType,
		Visibility:  req.Visibility,
		Published:   time.Now().UTC(),
	}
	if err := db.GetDB().UpsertEntry(entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	if err := dist.DistributeActivity(activitypub.NewCreateEntry(author, entry), author); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "distribution failure"})
		return
	}
	c.JSON(http.StatusCreated, entryToResponse(entry))
}

// HandleUpdateEntry overwrites the entry's mutable fields and distributes
// the Update.
func HandleUpdateEntry(c *gin.Context, conf *util.AppConfig, dist *activitypub.Distributor) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}
	entry := entryFromPath(c, author)
	if entry == nil {
		return
	}
	if entry.Visibility == domain.VisibilityDeleted {
		c.JSON(http.StatusGone, gin.H{"error": "entry deleted"})
		return
	}

	var req struct {
		Title       string `json:"title"`
		Content     string `json:"content"`
		ContentType string `json:"contentType"`
		Visibility  string `json:"visibility"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	req.Visibility = strings.ToUpper(req.Visibility)
	if req.Visibility == "" {
		req.Visibility = entry.Visibility
	}
	if !validVisibility(req.Visibility) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visibility"})
		return
	}

	entry.Title = req.Title
	entry.Content = req.Content
	entry.ContentType = req.ContentType
	entry.Visibility = req.Visibility
	if err := db.GetDB().UpdateEntryByFQID(entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	if err := dist.DistributeActivity(activitypub.NewUpdateEntry(author, entry), author); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "distribution failure"})
		return
	}
	c.JSON(http.StatusOK, entryToResponse(entry))
}

// HandleDeleteEntry soft-deletes the entry and announces it to everyone
// who could have seen it.
func HandleDeleteEntry(c *gin.Context, conf *util.AppConfig, dist *activitypub.Distributor) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}
	entry := entryFromPath(c, author)
	if entry == nil {
		return
	}

	if err := db.GetDB().SoftDeleteEntryByFQID(entry.FQID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	if err := dist.DistributeActivity(activitypub.NewDeleteEntry(author, entry), author); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "distribution failure"})
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGetEntry returns one entry. Soft-deleted entries read as gone.
func HandleGetEntry(c *gin.Context, conf *util.AppConfig) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}
	entry := entryFromPath(c, author)
	if entry == nil {
		return
	}
	if entry.Visibility == domain.VisibilityDeleted {
		c.JSON(http.StatusGone, gin.H{"error": "entry deleted"})
		return
	}
	c.JSON(http.StatusOK, entryToResponse(entry))
}

// HandleListEntries returns the author's public entries, paginated.
func HandleListEntries(c *gin.Context, conf *util.AppConfig) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}
	page, size := ParsePageParams(c)
	err, entries := db.GetDB().ReadPublicEntriesByAuthor(author.FQID, size, pageOffset(page, size))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	out := make([]entryResponse, 0, len(*entries))
	for i := range *entries {
		out = append(out, entryToResponse(&(*entries)[i]))
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "size": size, "items": out})
}

// HandleCreateComment attaches a comment to an entry and notifies the
// entry's owner.
func HandleCreateComment(c *gin.Context, conf *util.AppConfig, dist *activitypub.Distributor) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}

	var req struct {
		Entry       string `json:"entry"`
		InReplyTo   string `json:"inReplyTo"`
		Content     string `json:"content"`
		ContentType string `json:"contentType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || util.NormalizeFQID(req.Entry) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entry fqid required"})
		return
	}

	database := db.GetDB()
	entryFQID := util.NormalizeFQID(req.Entry)
	err, entry := database.ReadEntryByFQID(entryFQID)
	local := err == nil
	if local && entry.Visibility == domain.VisibilityDeleted {
		c.JSON(http.StatusGone, gin.H{"error": "entry deleted"})
		return
	}

	comment := &domain.Comment{
		Id:          uuid.New(),
		FQID:        util.MintFQID(author.FQID, "comments"),
		EntryFQID:   entryFQID,
		AuthorFQID:  author.FQID,
		InReplyTo:   util.NormalizeFQID(req.InReplyTo),
		Content:     req.Content,
		ContentType: req.ContentType,
		Published:   time.Now().UTC(),
	}
	if local {
		if err := database.UpsertComment(comment); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
			return
		}
	}

	if err := dist.DistributeActivity(activitypub.NewComment(author, comment), author); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "distribution failure"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"fqid": comment.FQID, "entry": comment.EntryFQID})
}

// HandleListComments returns an entry's comments, oldest first.
func HandleListComments(c *gin.Context, conf *util.AppConfig) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}
	entry := entryFromPath(c, author)
	if entry == nil {
		return
	}

	page, size := ParsePageParams(c)
	err, comments := db.GetDB().ReadCommentsByEntry(entry.FQID, size, pageOffset(page, size))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	type commentResponse struct {
		FQID        string    `json:"fqid"`
		Author      string    `json:"author"`
		InReplyTo   string    `json:"inReplyTo,omitempty"`
		Content     string    `json:"content"`
		ContentType string    `json:"contentType,omitempty"`
		Published   time.Time `json:"published"`
	}
	out := make([]commentResponse, 0, len(*comments))
	for _, cm := range *comments {
		out = append(out, commentResponse{
			FQID:        cm.FQID,
			Author:      cm.AuthorFQID,
			InReplyTo:   cm.InReplyTo,
			Content:     cm.Content,
			ContentType: cm.ContentType,
			Published:   cm.Published,
		})
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "size": size, "items": out})
}

// HandleLike records a like by the path author on any entry or comment
// fqid and notifies the object's owner.
func HandleLike(c *gin.Context, conf *util.AppConfig, dist *activitypub.Distributor) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}

	var req struct {
		Object string `json:"object"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || util.NormalizeFQID(req.Object) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "object fqid required"})
		return
	}
	objectFQID := util.NormalizeFQID(req.Object)

	database := db.GetDB()

	// Repeat likes return the existing record instead of erroring.
	if err, existing := database.ReadLikeByPair(author.FQID, objectFQID); err == nil {
		c.JSON(http.StatusOK, gin.H{"fqid": existing.FQID, "object": existing.ObjectFQID})
		return
	}

	activity := activitypub.NewLike(author, objectFQID)
	like := &domain.Like{
		Id:         uuid.New(),
		FQID:       activity.ID,
		AuthorFQID: author.FQID,
		ObjectFQID: objectFQID,
		Published:  time.Now().UTC(),
	}
	if err := database.ReplaceLike(like); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	if err := dist.DistributeActivity(activity, author); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "distribution failure"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"fqid": like.FQID, "object": like.ObjectFQID})
}

// HandleUnlike removes the path author's like of an object.
func HandleUnlike(c *gin.Context, conf *util.AppConfig, dist *activitypub.Distributor) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}

	var req struct {
		Object string `json:"object"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || util.NormalizeFQID(req.Object) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "object fqid required"})
		return
	}
	objectFQID := util.NormalizeFQID(req.Object)

	database := db.GetDB()
	err, like := database.ReadLikeByPair(author.FQID, objectFQID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such like"})
		return
	}
	if err := database.DeleteLikeByPair(author.FQID, objectFQID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	if err := dist.DistributeActivity(activitypub.NewUndoLike(author, like), author); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "distribution failure"})
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleListLikes returns the likes recorded against an entry.
func HandleListLikes(c *gin.Context, conf *util.AppConfig) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}
	entry := entryFromPath(c, author)
	if entry == nil {
		return
	}

	page, size := ParsePageParams(c)
	err, likes := db.GetDB().ReadLikesByObject(entry.FQID, size, pageOffset(page, size))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	type likeResponse struct {
		FQID      string    `json:"fqid"`
		Author    string    `json:"author"`
		Published time.Time `json:"published"`
	}
	out := make([]likeResponse, 0, len(*likes))
	for _, l := range *likes {
		out = append(out, likeResponse{FQID: l.FQID, Author: l.AuthorFQID, Published: l.Published})
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "size": size, "items": out})
}
