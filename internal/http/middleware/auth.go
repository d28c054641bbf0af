// Package middleware – API key authentication.
//
// The service is operated by a single user; authentication is a shared
// secret carried in the X-API-Key header and compared in constant time.
// Requests failing the check are rejected with 401 before any pipeline or
// journal code runs.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderAPIKey is the request header carrying the shared secret.
const HeaderAPIKey = "X-API-Key"

// APIKeyAuth returns middleware enforcing the configured API key. An empty
// configured key disables authentication (useful in tests only; config
// validation rejects it for real deployments).
func APIKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "missing or invalid api key",
			})
			return
		}
		c.Next()
	}
}
