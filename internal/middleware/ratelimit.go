package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"aidash/backend/internal/storage"
)

// RateLimitByIP 基于存储层计数器的按IP限流中间件
//
// 计数器窗口由 RateLimitRepository 实现维护（redis 的 INCR+EXPIRE
// 或内存存储的过期条目）。超限请求以 429 拒绝。
func RateLimitByIP(repo storage.RateLimitRepository, log *zap.Logger, limit int64, window time.Duration) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:ip:%s:%s", c.FullPath(), c.ClientIP())

		count, err := repo.IncrementRateLimit(key, window)
		if err != nil {
			// 限流器故障时放行，避免把存储问题放大成全站不可用
			log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > limit {
			log.Warn("rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.FullPath()),
				zap.Int64("count", count),
			)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code": http.StatusTooManyRequests,
				"msg":  "请求过于频繁，请稍后重试",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ipLimiter 单个IP的令牌桶及其最近使用时间
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalRateLimiter 进程内按IP令牌桶限流器
//
// 未配置 redis 时的兜底实现，多实例部署下各实例独立计数。
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rate     rate.Limit
	burst    int
}

// NewLocalRateLimiter 创建进程内限流器
//
// limit 为窗口内允许的请求数，window 为窗口长度。
func NewLocalRateLimiter(limit int64, window time.Duration) *LocalRateLimiter {
	l := &LocalRateLimiter{
		limiters: make(map[string]*ipLimiter),
		rate:     rate.Limit(float64(limit) / window.Seconds()),
		burst:    int(limit),
	}
	go l.cleanup()
	return l
}

// Allow 判断该IP当前是否放行
func (l *LocalRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// cleanup 定期回收长时间未活动的IP条目
func (l *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		for ip, entry := range l.limiters {
			if time.Since(entry.lastSeen) > 10*time.Minute {
				delete(l.limiters, ip)
			}
		}
		l.mu.Unlock()
	}
}

// LocalRateLimit 进程内按IP限流中间件
func LocalRateLimit(limiter *LocalRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code": http.StatusTooManyRequests,
				"msg":  "请求过于频繁，请稍后重试",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
