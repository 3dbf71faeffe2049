package ports

import (
	"context"
	"time"
)

// SettlementLock serializes the settlement critical section per order.
// It closes the check-then-act window between the idempotency re-check and
// the ledger write; the conditional UPDATE plus the partial unique index on
// the ledger are the storage-level backstops.
type SettlementLock interface {
	// Acquire returns false when another holder owns the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RateLimiter bounds webhook ingress per caller.
type RateLimiter interface {
	// Allow reports whether one more request fits inside the fixed window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
