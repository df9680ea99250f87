package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"
	"syscall"

	"shopcsv/internal/logger"

	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into a 500. A client that hung up mid-download is
// not worth a stack trace, so broken pipes are dropped quietly.
func Recovery(logger *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if err, ok := recovered.(error); ok && clientGone(err) {
			c.Abort()
			return
		}

		log := logger.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
		)
		if gin.IsDebugging() {
			log = log.With("stack", string(debug.Stack()))
		}
		log.Error("Panic recovered: %v", recovered)

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}

func clientGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
