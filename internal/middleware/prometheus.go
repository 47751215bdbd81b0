package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/user/moodreel/internal/metrics"
)

// Prometheus 记录请求耗时，route 取路由模板
func Prometheus() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
