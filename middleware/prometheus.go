package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SixtySecondsApp/onboarding-forms/monitoring"
)

// PrometheusMetrics records request counts and latency per route. The
// scrape endpoint itself is not counted.
func PrometheusMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "/metrics" {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}

		monitoring.RequestsInFlight.Inc()
		start := time.Now()
		c.Next()
		monitoring.RequestsInFlight.Dec()

		code := c.Writer.Status()
		monitoring.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(code)).Inc()
		monitoring.RequestsByClass.WithLabelValues(StatusClass(code)).Inc()
		monitoring.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// StatusClass buckets a status code as "2xx", "4xx" and so on.
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}
