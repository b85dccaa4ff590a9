package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tubefetch/pkg/logger"
	"go.uber.org/zap"
)

// Logger returns a gin middleware for access logging. Server errors are also
// written to the error log when events is set.
func Logger(log *zap.Logger, events *logger.MultiLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("client_ip", clientIP),
		}

		// static assets and polling are noisy
		if strings.HasPrefix(path, "/static/") || strings.HasSuffix(path, "/progress") {
			log.Debug("HTTP request", fields...)
		} else {
			log.Info("HTTP request", fields...)
		}

		if statusCode >= 500 && events != nil {
			events.LogAppError("HTTP error response", fields...)
		}
	}
}
