package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/aman-churiwal/redaction-gateway/internal/storage"
)

// RedisLimiter enforces the policy against the shared store so every
// gateway process sees the same counters. Store failures admit the
// request: a dead store must not take the whole gateway down with it.
type RedisLimiter struct {
	store  Store
	prefix string
	policy Policy
}

func NewRedisLimiter(store Store, prefix string, policy Policy) *RedisLimiter {
	return &RedisLimiter{
		store:  store,
		prefix: prefix,
		policy: policy,
	}
}

func (l *RedisLimiter) Policy() Policy {
	return l.policy
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now()

	// Minimum spacing first, then the window count.
	if l.policy.MinInterval > 0 {
		raw, err := l.store.Get(ctx, l.lastKey(key))
		switch {
		case err == nil:
			if lastNanos, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
				since := now.Sub(time.Unix(0, lastNanos))
				if since < l.policy.MinInterval {
					return Decision{
						Allowed:    false,
						RetryAfter: l.policy.MinInterval - since,
					}, nil
				}
			}
		case errors.Is(err, storage.ErrNotFound):
			// No prior request in the spacing horizon.
		default:
			log.Printf("Rate limit store read failed, allowing request: %v", err)
			return Decision{Allowed: true, Remaining: l.policy.MaxRequests}, nil
		}
	}

	windowID := now.Unix() / int64(l.policy.Window.Seconds())

	count, err := l.store.Incr(ctx, l.windowKey(key, windowID))
	if err != nil {
		log.Printf("Rate limit store incr failed, allowing request: %v", err)
		return Decision{Allowed: true, Remaining: l.policy.MaxRequests}, nil
	}

	if count == 1 {
		// Expiry slightly longer than the window to cover clock skew.
		l.store.Expire(ctx, l.windowKey(key, windowID), l.policy.Window+2*time.Second)
	}

	if count > int64(l.policy.MaxRequests) {
		resetAt := time.Unix((windowID+1)*int64(l.policy.Window.Seconds()), 0)
		retryAfter := time.Until(resetAt)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return Decision{Allowed: false, RetryAfter: retryAfter}, nil
	}

	if l.policy.MinInterval > 0 {
		ttl := l.policy.Window
		if spacingTTL := l.policy.MinInterval + time.Second; spacingTTL > ttl {
			ttl = spacingTTL
		}
		if err := l.store.Set(ctx, l.lastKey(key), strconv.FormatInt(now.UnixNano(), 10), ttl); err != nil {
			log.Printf("Rate limit store set failed: %v", err)
		}
	}

	remaining := l.policy.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{Allowed: true, Remaining: remaining}, nil
}

func (l *RedisLimiter) windowKey(key string, windowID int64) string {
	return fmt.Sprintf("%s:rl:%s:w:%d", l.prefix, key, windowID)
}

func (l *RedisLimiter) lastKey(key string) string {
	return fmt.Sprintf("%s:rl:%s:last", l.prefix, key)
}
