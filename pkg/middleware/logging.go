package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/schoolvax/portal/pkg/logger"
)

// RequestLogger logs one line per request, skipping the given paths.
func RequestLogger(log logger.Logger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := []logger.Field{
			{Key: "method", Value: c.Request.Method},
			{Key: "path", Value: c.Request.URL.Path},
			{Key: "status", Value: c.Writer.Status()},
			{Key: "duration", Value: time.Since(start).Seconds()},
			{Key: "client_ip", Value: c.ClientIP()},
		}
		if id, ok := c.Get("request_id"); ok {
			fields = append(fields, logger.Field{Key: "request_id", Value: id})
		}

		switch {
		case c.Writer.Status() >= 500:
			log.Error("Request failed", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("Request rejected", fields...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}

// Recovery converts panics into the JSON error body used by every endpoint.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("Panic recovered",
			logger.Field{Key: "path", Value: c.Request.URL.Path},
			logger.Field{Key: "panic", Value: recovered},
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"details": "An unexpected error occurred",
		})
	})
}
