package middleware

import (
	"context"
	"time"

	aws_pkg "pos-payment-service/pkg/aws"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware sends request count, latency and error counters to
// CloudWatch off the request path.
func MetricsMiddleware(metrics *aws_pkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil || !metrics.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		dims := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Route":   route,
			"Status":  statusCodeToRange(status),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = metrics.RecordCount(ctx, aws_pkg.MetricHTTPRequests, dims)
			_ = metrics.RecordLatency(ctx, aws_pkg.MetricHTTPLatency, duration, dims)
			switch {
			case status >= 500:
				_ = metrics.RecordCount(ctx, aws_pkg.MetricHTTP5xx, dims)
			case status >= 400:
				_ = metrics.RecordCount(ctx, aws_pkg.MetricHTTP4xx, dims)
			}
		}()
	}
}

func statusCodeToRange(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
