package middleware

import (
	"time"

	"affiliate-link/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 记录请求耗时，路由使用模板路径避免标签爆炸
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
