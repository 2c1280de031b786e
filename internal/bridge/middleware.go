package bridge

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireSession gates the authenticated surface. The bearer token must
// match the active session's access token; the bridge never proxies for an
// identity it is not synchronizing.
func (s *Server) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := s.sessions.Current()
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}

		token := c.GetHeader("Authorization")
		if token == "" {
			token = c.Query("token")
			if token != "" {
				token = "Bearer " + token
			}
		}
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" || token != sess.AccessToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", sess.User.ID)
		c.Next()
	}
}
