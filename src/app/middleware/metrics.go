package middleware

import (
	"github.com/gin-gonic/gin"

	"statapi/src/infra/metrics"
)

// Metrics records request count, duration and in-flight requests, labelled
// by route template so path parameters do not explode cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		done := m.RequestStarted(c.Request.Method)
		c.Next()
		done(c.FullPath(), c.Writer.Status())
	}
}
