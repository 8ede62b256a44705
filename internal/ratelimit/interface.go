package ratelimit

import (
	"context"
	"time"
)

// Policy is the per-tenant admission rule: at most MaxRequests per fixed
// Window, and no two admitted requests closer together than MinInterval.
type Policy struct {
	MaxRequests int
	Window      time.Duration
	MinInterval time.Duration
}

// Decision is the outcome of an admission check. RetryAfter is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)

	Policy() Policy
}

// Store is the subset of the shared-store client the redis limiter needs.
// *storage.RedisClient satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
