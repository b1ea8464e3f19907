package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"pixellar-backend/internal/common/logger"
)

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", getRequestID(c)).
			Int("body_size", c.Writer.Size()).
			Msg("Request processed")
	}
}
