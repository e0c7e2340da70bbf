package web

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/teamgold/golden/activitypub"
	"github.com/teamgold/golden/util"
)

// maxActivityBytes caps inbound federation payloads at 1MB.
const maxActivityBytes = 1 * 1024 * 1024

// NewRouter wires every HTTP route. The returned server is started (and
// shut down) by the app layer.
func NewRouter(conf *util.AppConfig, dist *activitypub.Distributor) *gin.Engine {
	// Set Gin to use the same log writer as the rest of the application
	gin.DefaultWriter = util.GetLogWriter()
	gin.DefaultErrorWriter = util.GetLogWriter()

	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	api := g.Group("/api")

	// Author registry
	api.POST("/authors", func(c *gin.Context) { HandleCreateAuthor(c, conf) })
	api.GET("/authors", func(c *gin.Context) { HandleListAuthors(c, conf) })
	api.GET("/authors/:id", func(c *gin.Context) { HandleGetAuthor(c, conf) })
	api.PUT("/authors/:id", func(c *gin.Context) { HandleUpdateProfile(c, conf, dist) })

	// Inbound federation: peers POST activities to an author's inbox.
	api.POST("/authors/:id/inbox/", NodeAuthMiddleware(), MaxBytesMiddleware(maxActivityBytes), func(c *gin.Context) {
		HandleInbox(c, conf)
	})
	api.GET("/authors/:id/inbox/", func(c *gin.Context) { HandleGetInbox(c, conf) })

	// Follow graph
	api.GET("/authors/:id/followers", func(c *gin.Context) { HandleGetFollowers(c, conf) })
	api.GET("/authors/:id/following", func(c *gin.Context) { HandleGetFollowing(c, conf) })
	api.POST("/authors/:id/following", func(c *gin.Context) { HandleFollow(c, conf, dist) })
	api.DELETE("/authors/:id/following", func(c *gin.Context) { HandleUnfollow(c, conf, dist) })
	api.GET("/authors/:id/follow-requests", func(c *gin.Context) { HandleGetFollowRequests(c, conf) })
	api.POST("/authors/:id/follow-requests/accept", func(c *gin.Context) { HandleFollowDecision(c, conf, dist, true) })
	api.POST("/authors/:id/follow-requests/reject", func(c *gin.Context) { HandleFollowDecision(c, conf, dist, false) })
	api.DELETE("/authors/:id/friends", func(c *gin.Context) { HandleUnfriend(c, conf, dist) })

	// Entries, comments, likes
	api.POST("/authors/:id/entries", func(c *gin.Context) { HandleCreateEntry(c, conf, dist) })
	api.GET("/authors/:id/entries", func(c *gin.Context) { HandleListEntries(c, conf) })
	api.GET("/authors/:id/entries/:eid", func(c *gin.Context) { HandleGetEntry(c, conf) })
	api.PUT("/authors/:id/entries/:eid", func(c *gin.Context) { HandleUpdateEntry(c, conf, dist) })
	api.DELETE("/authors/:id/entries/:eid", func(c *gin.Context) { HandleDeleteEntry(c, conf, dist) })
	api.GET("/authors/:id/entries/:eid/comments", func(c *gin.Context) { HandleListComments(c, conf) })
	api.GET("/authors/:id/entries/:eid/likes", func(c *gin.Context) { HandleListLikes(c, conf) })
	api.POST("/authors/:id/comments", func(c *gin.Context) { HandleCreateComment(c, conf, dist) })
	api.POST("/authors/:id/liked", func(c *gin.Context) { HandleLike(c, conf, dist) })
	api.DELETE("/authors/:id/liked", func(c *gin.Context) { HandleUnlike(c, conf, dist) })

	// Node admin
	api.POST("/nodes", func(c *gin.Context) { HandleCreateNode(c, conf) })
	api.GET("/nodes", func(c *gin.Context) { HandleListNodes(c, conf) })
	api.PUT("/nodes/:id", func(c *gin.Context) { HandleSetNodeActive(c, conf) })
	api.DELETE("/nodes/:id", func(c *gin.Context) { HandleDeleteNode(c, conf) })

	// RSS Feed
	g.GET("/feed", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")

		username := c.Query("author")
		rss, err := GetRSS(conf, username)
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rss})
		}
	})

	// NodeInfo endpoints for server discovery and statistics
	g.GET("/.well-known/nodeinfo", func(c *gin.Context) {
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Render(200, render.String{Format: GetWellKnownNodeInfo(conf)})
	})

	g.GET("/nodeinfo/2.0", func(c *gin.Context) {
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Render(200, render.String{Format: GetNodeInfo20(conf)})
	})

	return g
}

// NewServer binds the router to the configured address.
func NewServer(conf *util.AppConfig, dist *activitypub.Distributor) *http.Server {
	log.Printf("Starting HTTP server on %s:%d", conf.Conf.Host, conf.Conf.HttpPort)
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", conf.Conf.HttpPort),
		Handler: NewRouter(conf, dist),
	}
}
