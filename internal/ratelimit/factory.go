package ratelimit

import (
	"github.com/aman-churiwal/redaction-gateway/internal/storage"
)

// Picks the backend at construction time: the shared store when one is
// connected, otherwise process-local state.
func New(redis *storage.RedisClient, prefix string, policy Policy) Limiter {
	if redis != nil {
		return NewRedisLimiter(redis, prefix, policy)
	}
	return NewLocal(policy)
}
