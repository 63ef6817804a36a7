package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/riskpulse/pkg/logger"
)

// RequestLogging logs one structured entry per request.
func RequestLogging(log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("elapsed", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= 500 {
			log.Error(c.Request.Context(), "request failed", nil, fields...)
			return
		}
		log.Info(c.Request.Context(), "request handled", fields...)
	}
}
