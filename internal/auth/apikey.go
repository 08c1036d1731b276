package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// userCtxKey is the Gin context key used to store the authenticated user ID.
const userCtxKey = "user_id"

// HeaderAPIKey carries the caller's key on ordinary requests.
const HeaderAPIKey = "X-API-Key"

// QueryAPIKey carries the key on beacon deliveries, which cannot set headers.
const QueryAPIKey = "api_key"

// APIKeyMiddleware maps X-API-Key (or ?api_key= for beacons) → userID.
// In production this mapping would typically come from sessions/IAM.
func APIKeyMiddleware(keys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader(HeaderAPIKey))
		if apiKey == "" {
			apiKey = strings.TrimSpace(c.Query(QueryAPIKey))
		}
		userID, ok := keys[apiKey]
		if !ok || apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(userCtxKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user ID from the request context.
func UserID(c *gin.Context) string {
	v, _ := c.Get(userCtxKey)
	s, _ := v.(string)
	return s
}
