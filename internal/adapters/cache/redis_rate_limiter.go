package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter implements a fixed-window counter per key. The first
// increment in a window stamps the expiry, so idle keys clean themselves up.
type RedisRateLimiter struct {
	client *redis.Client
}

// NewRedisRateLimiter creates the rate limiter adapter.
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	fullKey := "ratelimit:" + key
	count, err := l.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}
