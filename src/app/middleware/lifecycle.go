package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Lifecycle logs "request received" when a request starts and "request
// handled" with the elapsed time in seconds once the response is produced,
// including responses written by Recovery after a panic.
func Lifecycle(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()
		path := c.Request.URL.Path

		log.InfoContext(ctx, "request received",
			"method", c.Request.Method,
			"path", path,
		)

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"elapsed_time", time.Since(start).Seconds(),
		}
		switch {
		case status >= 500:
			log.ErrorContext(ctx, "request handled", attrs...)
		case status >= 400:
			log.WarnContext(ctx, "request handled", attrs...)
		default:
			log.InfoContext(ctx, "request handled", attrs...)
		}
	}
}
