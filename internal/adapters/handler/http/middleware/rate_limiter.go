package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter per client kept in Redis.
// It fails open: when Redis is unavailable requests pass through.
type RateLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	logger *slog.Logger
}

func NewRateLimiter(rdb redis.Cmdable, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{rdb: rdb, limit: limit, window: window, logger: logger}
}

// clientKey prefers the authenticated user and falls back to the client IP.
func clientKey(c *gin.Context) string {
	if userID, ok := GetUserID(c); ok && userID != "" {
		return "rate_limit:user:" + userID
	}
	return "rate_limit:ip:" + c.ClientIP()
}

// hit counts one request and returns the window's count and remaining lifetime.
func (l *RateLimiter) hit(ctx context.Context, key string) (int64, time.Duration, error) {
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}

	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			// A key without TTL would block the client forever.
			l.rdb.Del(ctx, key)
			return 0, 0, fmt.Errorf("expire %s: %w", key, err)
		}
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = l.window
	}
	return count, ttl, nil
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, ttl, err := l.hit(c.Request.Context(), clientKey(c))
		if err != nil {
			l.logger.Warn("rate limiter skipped", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(l.limit)-count), 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

		if count > int64(l.limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":     "error",
				"message":    "Too many requests. Slow down!",
				"retry_in_s": int(ttl.Seconds()),
			})
			return
		}

		c.Next()
	}
}

func RateLimiterMiddleware(rdb redis.Cmdable, limit int, window time.Duration) gin.HandlerFunc {
	return NewRateLimiter(rdb, limit, window, nil).Middleware()
}
