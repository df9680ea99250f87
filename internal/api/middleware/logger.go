package middleware

import (
	"time"

	"shopcsv/internal/logger"

	"github.com/gin-gonic/gin"
)

func Logger(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		log := logger.Info
		if status >= 500 {
			log = logger.Error
		}
		log("%s %s %d %s %s",
			c.Request.Method,
			c.Request.URL.Path,
			status,
			time.Since(start),
			c.ClientIP(),
		)
	}
}
