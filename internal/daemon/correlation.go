package daemon

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// correlationIDKey is the context key used to store the correlation ID
const correlationIDKey = "correlation_id"

// CorrelationMiddleware adds a unique correlation ID to each request so a
// single call can be traced through the gateway's logs and, via the response
// header, by the CLI driving it.
//
// An existing X-Correlation-ID header is reused; otherwise a new UUID is
// generated.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-ID")

		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Set(correlationIDKey, correlationID)
		c.Header("X-Correlation-ID", correlationID)

		c.Next()
	}
}

// GetCorrelationID retrieves the correlation ID from the request context.
// Returns an empty string if no correlation ID is found.
func GetCorrelationID(c *gin.Context) string {
	if id, exists := c.Get(correlationIDKey); exists {
		if strID, ok := id.(string); ok {
			return strID
		}
	}
	return ""
}

// LogWithCorrelation creates a logrus entry with the correlation ID included
// so all entries for one request can be tied together.
func LogWithCorrelation(c *gin.Context) *logrus.Entry {
	return logrus.WithField("correlation_id", GetCorrelationID(c))
}
