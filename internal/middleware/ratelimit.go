package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"affiliate-link/internal/config"
	redispkg "affiliate-link/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const rateLimitMessage = "请求过于频繁，请稍后再试"

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RateLimit 按客户端 IP 限流
//
// 配置了 Redis 时使用固定窗口计数，多实例共享；否则每个 IP 一个令牌桶
func RateLimit(redisClient *redis.Client, limitConfig config.Limit, prefix string) gin.HandlerFunc {
	if !limitConfig.Enabled || limitConfig.Requests <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	var allow func(c *gin.Context) bool
	if redisClient != nil {
		allow = redisAllow(redisClient, limitConfig, prefix)
	} else {
		allow = newIPLimiters(limitConfig).allow
	}

	return func(c *gin.Context) {
		// 跳过特定路径
		for _, path := range limitConfig.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		if !allow(c) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rateLimitMessage})
			return
		}
		c.Next()
	}
}

func redisAllow(client *redis.Client, limitConfig config.Limit, prefix string) func(c *gin.Context) bool {
	limit := limitConfig.Requests + limitConfig.Burst
	return func(c *gin.Context) bool {
		window := time.Now().Unix() / 60
		key := redispkg.Key(prefix, "ratelimit", c.ClientIP(), time.Unix(window*60, 0).UTC().Format("200601021504"))

		count, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, 60).Int64()
		if err != nil {
			// Redis 不可用时放行
			zap.S().Warnf("限流计数失败: %v", err)
			return true
		}
		return count <= limit
	}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

func newIPLimiters(limitConfig config.Limit) *ipLimiters {
	burst := int(limitConfig.Burst)
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiters{
		limiters:  make(map[string]*ipLimiter),
		limit:     rate.Limit(float64(limitConfig.Requests) / 60),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (l *ipLimiters) allow(c *gin.Context) bool {
	ip := c.ClientIP()
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// 定期清理长时间不活跃的 IP
	if now.Sub(l.lastSweep) > 10*time.Minute {
		for key, v := range l.limiters {
			if now.Sub(v.lastSeen) > 10*time.Minute {
				delete(l.limiters, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.limiters[ip]
	if !ok {
		v = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}
