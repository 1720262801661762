package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Lcs002/nsp-crisma-app/internal/observability"
)

// Logging returns a middleware that logs each HTTP request after it
// completes.
func Logging(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		requestID := observability.RequestIDFromContext(c.Request.Context())

		logger.Info("http request",
			observability.String("method", c.Request.Method),
			observability.String("path", c.Request.URL.Path),
			observability.Int("status", c.Writer.Status()),
			observability.Int("size", c.Writer.Size()),
			observability.Duration("duration", duration),
			observability.String("client_ip", c.ClientIP()),
			observability.String("user_agent", c.Request.UserAgent()),
			observability.String("request_id", requestID),
		)
	}
}
