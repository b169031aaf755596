package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"todoclient/internal/logging"
)

// RequestLogger logs one line per request at a level matching the status
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logging.Component("http").WithFields(logrus.Fields{
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		})
		if userID, ok := UserID(c); ok {
			entry = entry.WithField("user_id", userID)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("Server error")
		case status >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request completed")
		}
	}
}
