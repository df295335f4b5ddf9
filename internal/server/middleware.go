package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"stevedore/internal/metrics"
	"stevedore/pkg/logging"
)

// RequestLogger logs one line per request at a level that follows the
// response status.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := routePath(c)
		switch {
		case status >= 500:
			logging.Warn(subsystem, "%s %s -> %d (%s)", c.Request.Method, path, status, time.Since(start))
		default:
			logging.Debug(subsystem, "%s %s -> %d (%s)", c.Request.Method, path, status, time.Since(start))
		}
	}
}

// RequestMetrics records request counts and latencies per route.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.RecordHTTPRequest(c.Request.Method, routePath(c), c.Writer.Status(), time.Since(start))
	}
}

// routePath prefers the route template so metric labels stay bounded.
func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}
