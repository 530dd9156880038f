package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fernanda-avila/MIndCare2025/config"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	// Rate limiting defaults
	defaultRateLimit  = 5                // 5 attempts
	defaultRateWindow = 15 * time.Minute // per 15 minutes
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

type localClient struct {
	lim  *rate.Limiter
	seen time.Time
}

// localLimiter is the in-process token bucket used while Redis is unavailable.
type localLimiter struct {
	mu        sync.Mutex
	clients   map[string]*localClient
	r         rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	return &localLimiter{
		clients:   make(map[string]*localClient),
		r:         rate.Every(window / time.Duration(limit)),
		burst:     limit,
		idle:      window,
		lastSweep: time.Now(),
	}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > l.idle {
		for k, c := range l.clients {
			if now.Sub(c.seen) > l.idle {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &localClient{lim: rate.NewLimiter(l.r, l.burst)}
		l.clients[key] = c
	}
	c.seen = now
	return c.lim.Allow()
}

// RateLimiter creates a rate limiting middleware keyed by endpoint and client
// IP. Counters live in Redis when it is configured and in memory otherwise.
func RateLimiter(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limit <= 0 {
		cfg.Limit = defaultRateLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultRateWindow
	}
	local := newLocalLimiter(cfg.Limit, cfg.Window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		endpoint := c.Request.URL.Path
		key := rateLimitKey(clientIP, endpoint)

		var allowed bool
		if rdb := config.GetRedisClient(); rdb != nil {
			var err error
			allowed, err = checkRateLimit(c.Request.Context(), rdb, key, cfg.Limit, cfg.Window)
			if err != nil {
				// Redis trouble must not lock users out; use the local bucket.
				util.LogSecurityEvent(util.SecurityEvent{
					EventType: util.EventSuspiciousActivity,
					IP:        clientIP,
					RequestID: GetRequestID(c),
					Message:   fmt.Sprintf("Rate limit check failed: %v", err),
				})
				allowed = local.allow(key)
			}
		} else {
			allowed = local.allow(key)
		}

		if !allowed {
			util.LogRateLimitExceeded("", clientIP, endpoint)
			c.Header("Retry-After", fmt.Sprintf("%d", int(cfg.Window.Seconds())))
			util.CallTooManyRequests(c, util.APIErrorParams{
				Msg: "Too many requests. Please try again later.",
				Err: fmt.Errorf("rate limit exceeded"),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitKey(clientIP, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpoint, clientIP)
}

// checkRateLimit counts the request in a fixed Redis window.
// Returns true if allowed, false if rate limit exceeded
func checkRateLimit(ctx context.Context, rdb *redis.Client, key string, limit int, window time.Duration) (bool, error) {
	pipe := rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	return incrCmd.Val() <= int64(limit), nil
}

// ResetRateLimit resets the Redis counter for a client and endpoint.
func ResetRateLimit(ctx context.Context, clientIP, endpoint string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return fmt.Errorf("redis not available")
	}
	return rdb.Del(ctx, rateLimitKey(clientIP, endpoint)).Err()
}
