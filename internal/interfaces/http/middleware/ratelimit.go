package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/dto"
)

// RateLimiter is an in-memory fixed window limiter. Each key gets limit
// requests per window; windows expire out of a ttlcache.
type RateLimiter struct {
	mu      sync.Mutex
	windows *ttlcache.Cache[string, *windowCount]
	limit   int
	window  time.Duration
}

type windowCount struct {
	used int
}

// NewRateLimiter creates a new rate limiter and starts its expiry loop
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	windows := ttlcache.New[string, *windowCount](
		ttlcache.WithTTL[string, *windowCount](window),
		ttlcache.WithDisableTouchOnHit[string, *windowCount](),
	)
	go windows.Start()
	return &RateLimiter{windows: windows, limit: limit, window: window}
}

// Stop ends the expiry loop
func (rl *RateLimiter) Stop() {
	rl.windows.Stop()
}

// Allow checks if a request from the given key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	item := rl.windows.Get(key)
	if item == nil {
		rl.windows.Set(key, &windowCount{used: 1}, ttlcache.DefaultTTL)
		return rl.limit > 0
	}
	wc := item.Value()
	if wc.used >= rl.limit {
		return false
	}
	wc.used++
	return true
}

// Remaining returns the number of remaining requests for the given key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	item := rl.windows.Get(key)
	if item == nil {
		return rl.limit
	}
	if left := rl.limit - item.Value().used; left > 0 {
		return left
	}
	return 0
}

// RateLimit limits requests per client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimitByKey returns a rate limiting middleware with custom key extractor
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		if !limiter.Allow(key) {
			c.Header("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeRateLimited,
					"Too many requests. Please try again later.", c.GetString(RequestIDContextKey)))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))

		c.Next()
	}
}
