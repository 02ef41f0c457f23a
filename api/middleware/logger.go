package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediashelf/pkg/logger"
	"go.uber.org/zap"
)

// Logger returns a gin middleware for logging.
// Server errors are also written to the error category of events, when given.
func Logger(log *zap.Logger, events *logger.MultiLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := append(requestFields(c),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
		)
		log.Info("HTTP request", fields...)

		if statusCode >= 500 && events != nil {
			events.LogAppError("HTTP error response", fields...)
		}
	}
}
