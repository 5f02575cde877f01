package utils

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an ID and logs it when it completes.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"elapsed":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		})
		if username := CurrentUsername(c); username != "" {
			entry = entry.WithField("username", username)
		}
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Error("request failed")
			return
		}
		entry.Info("request handled")
	}
}

// NewLogger builds the process logger from the configured level and format.
func NewLogger(level, format string) *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
