package middleware

import (
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"affiliate-link/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GinZapLogger 使用 zap 记录访问日志
func GinZapLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	log := logger.Named("http")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := redactQuery(c.Request.URL.RawQuery)

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(RequestIDKey)),
		}

		switch {
		case len(c.Errors) > 0:
			log.Error(c.Errors.String(), fields...)
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Warn("请求失败", fields...)
		default:
			log.Info("请求完成", fields...)
		}
	}
}

// GinZapRecovery 捕获 panic，记录日志并返回 internal_error
func GinZapRecovery(logger *zap.Logger, stack bool) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	log := logger.Named("recovery")

	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			// 客户端断开连接时无法再写响应
			brokenPipe := false
			if err, ok := rec.(error); ok {
				var ne *net.OpError
				if errors.As(err, &ne) {
					var se *os.SyscallError
					if errors.As(ne, &se) {
						msg := strings.ToLower(se.Error())
						brokenPipe = strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
					}
				}
			}

			fields := []zap.Field{
				zap.Any("error", rec),
				zap.String("request", dumpRequest(c.Request)),
				zap.String("request_id", c.GetString(RequestIDKey)),
			}
			if stack && !brokenPipe {
				fields = append(fields, zap.Stack("stack"))
			}

			if brokenPipe {
				log.Error(c.Request.URL.Path, fields...)
				c.Abort()
				return
			}
			log.Error("panic recovered", fields...)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": apperr.InternalMessage})
		}()
		c.Next()
	}
}

var (
	sensitiveParams  = []string{"token", "access_token"}
	sensitiveHeaders = []string{"authorization", "cookie", "x-postback-token"}
)

// dumpRequest 导出请求行和请求头，凭证替换为 *
func dumpRequest(r *http.Request) string {
	raw, err := httputil.DumpRequest(r, false)
	if err != nil {
		return ""
	}
	lines := strings.Split(string(raw), "\r\n")
	for i, line := range lines {
		if i == 0 {
			if path, query, ok := strings.Cut(line, "?"); ok {
				q, proto, _ := strings.Cut(query, " ")
				lines[i] = path + "?" + redactQuery(q) + " " + proto
			}
			continue
		}
		name, _, ok := strings.Cut(line, ":")
		if ok && slices.Contains(sensitiveHeaders, strings.ToLower(name)) {
			lines[i] = name + ": *"
		}
	}
	return strings.Join(lines, "\r\n")
}

// redactQuery 隐藏查询串中的令牌
func redactQuery(raw string) string {
	if raw == "" || !strings.Contains(raw, "token") {
		return raw
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "<invalid>"
	}
	for _, key := range sensitiveParams {
		if _, ok := values[key]; ok {
			values.Set(key, "***")
		}
	}
	return values.Encode()
}
