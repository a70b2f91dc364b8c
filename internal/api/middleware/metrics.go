package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/osa911/proxydesk/internal/metrics"
)

// Metrics records request counts and latency by route template, so
// /api/proxies/:filename stays one series regardless of the file name.
func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		collector.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
