package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AccessLog writes one structured line per request after it completes.
func AccessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.GetString(CtxRealIPKey),
			"bytes":      c.Writer.Size(),
		})
		switch s := c.Writer.Status(); {
		case s >= 500:
			entry.Error("request")
		case s >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
