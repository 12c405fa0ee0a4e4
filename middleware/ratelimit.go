package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter 滑动窗口限流，按 路由+IP 分桶计数
type RateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string][]time.Time
}

// NewRateLimiter 每个桶在 window 内最多放行 limit 次
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{max: limit, window: window, now: time.Now, buckets: make(map[string][]time.Time)}
}

// Allow 记录一次尝试，超出配额时返回 false
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	hits := trimBefore(l.buckets[key], now.Add(-l.window))
	if len(hits) >= l.max {
		l.buckets[key] = hits
		return false
	}
	l.buckets[key] = append(hits, now)
	return true
}

// Sweep 清理窗口外的记录，空桶直接删除
func (l *RateLimiter) Sweep() {
	cutoff := l.now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, hits := range l.buckets {
		if hits = trimBefore(hits, cutoff); len(hits) == 0 {
			delete(l.buckets, key)
		} else {
			l.buckets[key] = hits
		}
	}
}

// Size 当前桶数量
func (l *RateLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func trimBefore(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Handler 限流中间件，不同路由的计数互不影响
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.FullPath() + "|" + c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "请求过于频繁，请稍后再试",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoginRateLimit 登录、注册、接受邀请等接口的限流中间件，每分钟清理一次过期记录
func LoginRateLimit(limit int, window time.Duration) gin.HandlerFunc {
	l := NewRateLimiter(limit, window)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			l.Sweep()
		}
	}()
	return l.Handler()
}
