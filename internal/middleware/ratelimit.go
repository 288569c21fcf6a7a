package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/logger"
	"go.uber.org/zap"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
	// KeyFunc picks the bucket for a request, client IP by default
	KeyFunc func(c *gin.Context) string
	// Now is the clock, time.Now by default
	Now func() time.Time
}

// DefaultRateLimitConfig returns the limits for read endpoints
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   100,
		Window:  time.Minute,
		KeyFunc: func(c *gin.Context) string { return c.ClientIP() },
	}
}

// IngestRateLimitConfig returns the limits for event ingestion. Clients
// emit several events per page view, so the budget is larger.
func IngestRateLimitConfig() RateLimitConfig {
	cfg := DefaultRateLimitConfig()
	cfg.Limit = 600
	return cfg
}

// TokenBucket for rate limiting
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.tokens = min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
		tb.lastRefill = now
	}
}

func (tb *TokenBucket) allow(now time.Time) bool {
	tb.refill(now)
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// retryAfter returns whole seconds until the next token
func (tb *TokenBucket) retryAfter() int {
	if tb.tokens >= 1 {
		return 0
	}
	return int((1-tb.tokens)/tb.refillRate) + 1
}

// RateLimiter keeps one token bucket per key
type RateLimiter struct {
	config    RateLimitConfig
	mu        sync.Mutex
	buckets   map[string]*TokenBucket
	lastSweep time.Time
}

// NewRateLimiter creates a new rate limiting middleware
func NewRateLimiter(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	rl := &RateLimiter{config: config, buckets: make(map[string]*TokenBucket)}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		ok, retryAfter := rl.Allow(key)
		if ok {
			c.Next()
			return
		}

		logger.Log.Warn("Rate limit exceeded",
			zap.String("key", key),
			zap.String("path", c.FullPath()),
		)
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", "0")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"code":        "RATE_LIMITED",
			"message":     "rate limit exceeded",
			"retry_after": retryAfter,
		})
	}
}

// Allow takes a token for key and, when none is left, reports how many
// seconds to wait
func (rl *RateLimiter) Allow(key string) (bool, int) {
	now := rl.config.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweep(now)

	bucket, exists := rl.buckets[key]
	if !exists {
		bucket = &TokenBucket{
			tokens:     float64(rl.config.Limit),
			maxTokens:  float64(rl.config.Limit),
			refillRate: float64(rl.config.Limit) / rl.config.Window.Seconds(),
			lastRefill: now,
		}
		rl.buckets[key] = bucket
	}

	if bucket.allow(now) {
		return true, 0
	}
	return false, bucket.retryAfter()
}

// sweep drops buckets that have refilled completely, at most once a window
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.config.Window {
		return
	}
	rl.lastSweep = now
	for key, bucket := range rl.buckets {
		bucket.refill(now)
		if bucket.tokens >= bucket.maxTokens {
			delete(rl.buckets, key)
		}
	}
}

// ValidateRateLimit rejects configurations that would divide by zero
func ValidateRateLimit(config RateLimitConfig) error {
	if config.Limit <= 0 {
		return apperrors.Configuration("rate_limit.limit", "must be positive")
	}
	if config.Window <= 0 {
		return apperrors.Configuration("rate_limit.window", "must be positive")
	}
	return nil
}
