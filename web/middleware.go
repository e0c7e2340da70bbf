package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/teamgold/golden/db"
	"golang.org/x/crypto/bcrypt"
)

// MaxBytesMiddleware limits the size of request bodies
func MaxBytesMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "Request body too large",
			})
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// NodeAuthMiddleware authenticates inbound federation calls with the shared
// basic-auth credentials handed to each registered peer node. While no
// nodes are registered the inbox stays open, so a fresh install can receive
// traffic before its peering is set up.
func NodeAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		database := db.GetDB()

		err, nodes := database.ReadAllNodes()
		if err == nil && len(*nodes) == 0 {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="federation"`)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "node credentials required"})
			c.Abort()
			return
		}

		err, node := database.ReadNodeBySharedUser(user)
		if err != nil || bcrypt.CompareHashAndPassword([]byte(node.SharedPassHash), []byte(pass)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid node credentials"})
			c.Abort()
			return
		}

		c.Next()
	}
}
