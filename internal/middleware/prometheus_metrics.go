package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qaforum/engagement/internal/metrics"
)

// MetricsMiddleware collects HTTP metrics for Prometheus. Requests are
// labelled by route template so ids in the path do not explode label
// cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		// Numeric status ("200", "500") so queries like status=~"5.." work
		status := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(startTime).Seconds())
	}
}
