package middleware

import (
	"github.com/gin-gonic/gin"

	"medseq/internal/infrastructure/metrics"
)

// Metrics records request count, latency and in-flight gauge.
// The matched route template is used as label to keep cardinality low.
func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		done := collector.RequestStarted()
		defer func() {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			done(c.Request.Method, route, c.Writer.Status())
		}()
		c.Next()
	}
}
