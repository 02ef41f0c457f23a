package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/mediashelf/pkg/logger"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 and logs it with the download it concerned.
// The panic also goes to the error category of events, when given.
func Recovery(log *zap.Logger, events *logger.MultiLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				fields := append(requestFields(c), zap.Any("error", err), zap.Stack("stack"))
				log.Error("Panic recovered", fields...)
				if events != nil {
					events.LogAppError("Panic recovered", fields...)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// requestFields identifies the request, and the download when the route names one
func requestFields(c *gin.Context) []zap.Field {
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("client_ip", c.ClientIP()),
	}
	if id := c.Param("id"); id != "" {
		fields = append(fields, zap.String("download_id", id))
	}
	return fields
}
