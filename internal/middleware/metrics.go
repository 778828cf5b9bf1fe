package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resource-allocator/internal/service"
)

// unmatchedRoute labels requests that hit no route, keeping the path label bounded.
const unmatchedRoute = "unmatched"

// Metrics records request count and latency per route template. The scrape endpoint itself
// is not counted.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
