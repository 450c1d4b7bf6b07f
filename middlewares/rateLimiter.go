package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per key in redis with a TTL window. Counters
// are coarse and best-effort: losing them on restart (or running without
// redis) degrades open, it never blocks traffic by itself.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow increments the counter for key and reports whether it is within the
// limit. Exposed as a capability so workflows can throttle per identity
// rather than per IP.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if rl == nil || rl.client == nil {
		return true, nil
	}

	fullKey := "ratelimit:" + key

	count, err := rl.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := rl.client.Expire(ctx, fullKey, rl.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= rl.limit, nil
}

// Middleware applies IP-based limiting to a route group (login, signup).
func (rl *RateLimiter) Middleware(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", scope, c.ClientIP())

		allowed, err := rl.Allow(c.Request.Context(), key)
		if err != nil {
			// Counter store failure: let the request through.
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
			})
			return
		}
		c.Next()
	}
}
