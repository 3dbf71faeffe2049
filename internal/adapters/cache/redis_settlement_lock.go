package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSettlementLock serializes concurrent settlement attempts on the same
// order with a SET-NX lease. The TTL bounds how long a crashed holder can
// block the order; the conditional ledger UPDATE remains the final arbiter.
type RedisSettlementLock struct {
	client *redis.Client
}

// NewRedisSettlementLock creates the settlement lock adapter.
func NewRedisSettlementLock(client *redis.Client) *RedisSettlementLock {
	return &RedisSettlementLock{client: client}
}

func (l *RedisSettlementLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, "settlement:lock:"+key, "1", ttl).Result()
}

func (l *RedisSettlementLock) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, "settlement:lock:"+key).Err()
}
