package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// requireAPIKey accepts the configured key via Authorization: Bearer or
// X-API-Key. A server with no key configured rejects every webhook call with
// a 500 rather than running open.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := s.cfg.Server.APIKey
		if key == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "API key not configured"})
			return
		}

		auth := c.GetHeader("Authorization")
		if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == key {
			c.Next()
			return
		}
		if c.GetHeader("X-API-Key") == key {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
	}
}
