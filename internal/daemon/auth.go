package daemon

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// UserHeader is the header carrying the identity of the caller. The gateway
// trusts this header; it is expected to sit behind an authenticating proxy.
const UserHeader = "X-User-Id"

// userIDKey is the context key under which the authenticated user is stored.
const userIDKey = "user_id"

// UserMiddleware extracts the caller identity from the X-User-Id header.
// Requests without the header are rejected with 401; requests with an empty
// or malformed value are rejected with 400.
func UserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		values, present := c.Request.Header[http.CanonicalHeaderKey(UserHeader)]
		if !present {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Missing X-User-Id header",
			})
			c.Abort()
			return
		}

		userID := strings.TrimSpace(values[0])
		if userID == "" || !utf8.ValidString(userID) || strings.ContainsAny(userID, ":# ") {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": "Invalid X-User-Id header",
			})
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// GetUserID retrieves the authenticated user from the request context.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(userIDKey); exists {
		if strID, ok := id.(string); ok {
			return strID
		}
	}
	return ""
}
