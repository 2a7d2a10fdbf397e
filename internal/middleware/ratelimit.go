package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Butonix/localhub/internal/util"
	"github.com/gin-gonic/gin"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
}

// AuthRateLimitConfig limits login attempts
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 10, Window: time.Minute}
}

// SubscribeRateLimitConfig limits push subscription churn
func SubscribeRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 30, Window: time.Minute}
}

// tokenBucket refills continuously up to its capacity
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimiter keeps one token bucket per client. Authenticated clients are
// keyed by user id, everyone else by IP.
type RateLimiter struct {
	config     RateLimitConfig
	refillRate float64 // tokens per second

	mu      sync.Mutex
	buckets map[string]*tokenBucket
	now     func() time.Time
}

// NewRateLimiter creates a limiter
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		config:     config,
		refillRate: float64(config.Limit) / config.Window.Seconds(),
		buckets:    make(map[string]*tokenBucket),
		now:        time.Now,
	}
}

// Allow takes a token for key. When none is left it returns false and the
// seconds until the next token.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.evictIdle(now)

	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = &tokenBucket{tokens: float64(rl.config.Limit), lastRefill: now}
		rl.buckets[key] = bucket
	}

	elapsed := now.Sub(bucket.lastRefill).Seconds()
	bucket.tokens = math.Min(float64(rl.config.Limit), bucket.tokens+elapsed*rl.refillRate)
	bucket.lastRefill = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true, 0
	}
	return false, int(math.Ceil((1 - bucket.tokens) / rl.refillRate))
}

// evictIdle drops buckets that have been idle long enough to be full again
func (rl *RateLimiter) evictIdle(now time.Time) {
	if len(rl.buckets) < 1024 {
		return
	}
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastRefill) > rl.config.Window {
			delete(rl.buckets, key)
		}
	}
}

// Middleware returns the gin handler
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(util.ContextUserIDKey)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		allowed, retryAfter := rl.Allow(key)
		if !allowed {
			RecordError("rate_limited", c.FullPath())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":        "RATE_LIMITED",
				"message":     "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}

// RateLimitAuth returns a middleware for auth endpoints
func RateLimitAuth() gin.HandlerFunc {
	return NewRateLimiter(AuthRateLimitConfig()).Middleware()
}

// RateLimitSubscribe returns a middleware for push subscription endpoints
func RateLimitSubscribe() gin.HandlerFunc {
	return NewRateLimiter(SubscribeRateLimitConfig()).Middleware()
}
