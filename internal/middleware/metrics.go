// Package middleware provides the Gin middleware stack of the connected
// registry API: request IDs, metrics, access logging, CORS, security headers
// and rate limiting.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/connected-registry/connected-registry/internal/telemetry"
)

// NoRouteLabel is the path label recorded for requests that matched no route.
const NoRouteLabel = "<no-route>"

// MetricsMiddleware records http_requests_total and http_request_duration_seconds
// for every request. The path label is the matched route template
// (e.g. /connected/realtime/:firstDeveloperHandle/:secondDeveloperHandle), never
// the raw URL, so developer handles do not leak into label cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = NoRouteLabel
		}

		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
