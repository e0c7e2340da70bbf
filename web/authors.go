package web

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/teamgold/golden/activitypub"
	"github.com/teamgold/golden/db"
	"github.com/teamgold/golden/domain"
	"github.com/teamgold/golden/util"
)

type authorResponse struct {
	Id          uuid.UUID `json:"id"`
	FQID        string    `json:"fqid"`
	Host        string    `json:"host"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	Local       bool      `json:"local"`
}

func authorToResponse(a *domain.Author) authorResponse {
	return authorResponse{
		Id:          a.Id,
		FQID:        a.FQID,
		Host:        a.Host,
		Username:    a.Username,
		DisplayName: a.DisplayName,
		Local:       a.Local,
	}
}

func localAuthorFromPath(c *gin.Context) *domain.Author {
	authorId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown author"})
		return nil
	}
	err, author := db.GetDB().ReadAuthorById(authorId)
	if err != nil || !author.Local {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown author"})
		return nil
	}
	return author
}

// HandleCreateAuthor registers a local author.
func HandleCreateAuthor(c *gin.Context, conf *util.AppConfig) {
	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if valid, msg := util.IsValidUsername(req.Username); !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	database := db.GetDB()
	if err, _ := database.ReadAuthorByUsername(req.Username); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username taken"})
		return
	}

	id := uuid.New()
	author := &domain.Author{
		Id:          id,
		FQID:        util.AuthorFQID(conf.Conf.SiteUrl, id),
		Host:        util.FQIDHost(conf.Conf.SiteUrl),
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Local:       true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := database.CreateAuthor(author); err != nil {
		log.Printf("authors: create %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusCreated, authorToResponse(author))
}

// HandleListAuthors returns the local authors, paginated.
func HandleListAuthors(c *gin.Context, conf *util.AppConfig) {
	page, size := ParsePageParams(c)
	err, authors := db.GetDB().ReadLocalAuthors(size, pageOffset(page, size))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	out := make([]authorResponse, 0, len(*authors))
	for i := range *authors {
		out = append(out, authorToResponse(&(*authors)[i]))
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "size": size, "items": out})
}

// HandleGetAuthor returns one author by id.
func HandleGetAuthor(c *gin.Context, conf *util.AppConfig) {
	authorId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown author"})
		return
	}
	err, author := db.GetDB().ReadAuthorById(authorId)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown author"})
		return
	}
	c.JSON(http.StatusOK, authorToResponse(author))
}

// HandleUpdateProfile changes the display name and fans the profile update
// out to followers.
func HandleUpdateProfile(c *gin.Context, conf *util.AppConfig, dist *activitypub.Distributor) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}

	var req struct {
		DisplayName string `json:"displayName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	database := db.GetDB()
	if err := database.UpdateAuthorProfile(author.FQID, req.DisplayName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	author.DisplayName = req.DisplayName

	if err := dist.DistributeActivity(activitypub.NewProfileUpdate(author), author); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "distribution failure"})
		return
	}
	c.JSON(http.StatusOK, authorToResponse(author))
}

// HandleGetFollowers lists the fqids of accepted followers.
func HandleGetFollowers(c *gin.Context, conf *util.AppConfig) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}
	err, fqids := db.GetDB().ReadAcceptedFollowerFQIDs(author.FQID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": fqids})
}

// HandleGetFollowing lists the fqids this author follows.
func HandleGetFollowing(c *gin.Context, conf *util.AppConfig) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}
	err, fqids := db.GetDB().ReadAcceptedFollowingFQIDs(author.FQID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": fqids})
}

// HandleGetFollowRequests lists pending inbound follow requests.
func HandleGetFollowRequests(c *gin.Context, conf *util.AppConfig) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}
	err, follows := db.GetDB().ReadFollowRequests(author.FQID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	type followRequest struct {
		FQID      string    `json:"fqid"`
		Actor     string    `json:"actor"`
		Summary   string    `json:"summary,omitempty"`
		Published time.Time `json:"published"`
	}
	out := make([]followRequest, 0, len(*follows))
	for _, f := range *follows {
		out = append(out, followRequest{FQID: f.FQID, Actor: f.ActorFQID, Summary: f.Summary, Published: f.Published})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

// HandleFollow sends a follow request from the path author to a target
// fqid, local or remote.
func HandleFollow(c *gin.Context, conf *util.AppConfig, dist *activitypub.Distributor) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}

	var req struct {
		Target string `json:"target"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || util.NormalizeFQID(req.Target) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target fqid required"})
		return
	}
	target := &domain.Author{FQID: util.NormalizeFQID(req.Target)}
	if target.FQID == author.FQID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot follow yourself"})
		return
	}

	activity := activitypub.NewFollow(author, target)
	if err := dist.DistributeActivity(activity, author); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "distribution failure"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "requested", "id": activity.ID})
}

// HandleFollowDecision accepts or rejects a pending follow request. The
// decision is recorded locally and announced back to the requester.
func HandleFollowDecision(c *gin.Context, conf *util.AppConfig, dist *activitypub.Distributor, accept bool) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}

	var req struct {
		Actor string `json:"actor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || util.NormalizeFQID(req.Actor) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor fqid required"})
		return
	}
	actorFQID := util.NormalizeFQID(req.Actor)

	follow := dist.ResolveFollowRef(actorFQID, author.FQID)
	if follow == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no follow request from that author"})
		return
	}

	state := domain.FollowAccepted
	builder := activitypub.NewAccept
	if !accept {
		state = domain.FollowRejected
		builder = activitypub.NewReject
	}

	follow.Id = uuid.New()
	follow.State = state
	if err := db.GetDB().ReplaceFollow(follow); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	if err := dist.DistributeActivity(builder(author, follow.ActorFQID, follow), author); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "distribution failure"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": state})
}

// HandleUnfollow retracts the path author's follow of a target.
func HandleUnfollow(c *gin.Context, conf *util.AppConfig, dist *activitypub.Distributor) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}

	var req struct {
		Target string `json:"target"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || util.NormalizeFQID(req.Target) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target fqid required"})
		return
	}
	targetFQID := util.NormalizeFQID(req.Target)

	if err := db.GetDB().DeleteFollowByPair(author.FQID, targetFQID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	activity := activitypub.NewUndoFollow(author, &domain.Author{FQID: targetFQID})
	if err := dist.DistributeActivity(activity, author); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "distribution failure"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unfollowed"})
}

// HandleUnfriend severs a mutual follow in both directions and tells the
// other side.
func HandleUnfriend(c *gin.Context, conf *util.AppConfig, dist *activitypub.Distributor) {
	author := localAuthorFromPath(c)
	if author == nil {
		return
	}

	var req struct {
		Target string `json:"target"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || util.NormalizeFQID(req.Target) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target fqid required"})
		return
	}
	targetFQID := util.NormalizeFQID(req.Target)

	database := db.GetDB()
	if err := database.DeleteFollowByPair(author.FQID, targetFQID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	if err := database.DeleteFollowByPair(targetFQID, author.FQID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	activity := activitypub.NewRemoveFriend(author, &domain.Author{FQID: targetFQID})
	if err := dist.DistributeActivity(activity, author); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "distribution failure"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unfriended"})
}
