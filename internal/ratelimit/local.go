package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiter keeps the same policy in process memory for when no
// shared store is configured or reachable. One coarse mutex guards the
// table; checks never block on anything while holding it.
type LocalLimiter struct {
	policy  Policy
	idleTTL time.Duration

	mu      sync.Mutex
	tenants map[string]*tenantState
}

type tenantState struct {
	windowStart time.Time
	count       int
	spacing     *rate.Limiter
	lastSeen    time.Time
}

type LocalOption func(*LocalLimiter)

// WithIdleTTL overrides how long an idle tenant entry survives before
// the janitor sweeps it.
func WithIdleTTL(d time.Duration) LocalOption {
	return func(l *LocalLimiter) { l.idleTTL = d }
}

func NewLocal(policy Policy, opts ...LocalOption) *LocalLimiter {
	l := &LocalLimiter{
		policy:  policy,
		idleTTL: 2 * policy.Window,
		tenants: make(map[string]*tenantState),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *LocalLimiter) Policy() Policy {
	return l.policy
}

func (l *LocalLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	state, ok := l.tenants[key]
	if !ok {
		state = &tenantState{windowStart: now}
		if l.policy.MinInterval > 0 {
			// Burst 1: exactly one admission per MinInterval.
			state.spacing = rate.NewLimiter(rate.Every(l.policy.MinInterval), 1)
		}
		l.tenants[key] = state
	}
	state.lastSeen = now

	if now.Sub(state.windowStart) >= l.policy.Window {
		state.windowStart = now
		state.count = 0
	}

	// Minimum spacing first, then the window count.
	var reservation *rate.Reservation
	if state.spacing != nil {
		reservation = state.spacing.ReserveN(now, 1)
		if delay := reservation.DelayFrom(now); delay > 0 {
			reservation.CancelAt(now)
			return Decision{Allowed: false, RetryAfter: delay}, nil
		}
	}

	if state.count >= l.policy.MaxRequests {
		if reservation != nil {
			// Give the spacing slot back; the window is what rejected us.
			reservation.CancelAt(now)
		}
		retryAfter := state.windowStart.Add(l.policy.Window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return Decision{Allowed: false, RetryAfter: retryAfter}, nil
	}

	state.count++

	return Decision{Allowed: true, Remaining: l.policy.MaxRequests - state.count}, nil
}

// Removes tenant entries that have been idle longer than the idle TTL.
// Without this the table grows with every tenant ever seen.
func (l *LocalLimiter) Sweep() int {
	cutoff := time.Now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, state := range l.tenants {
		if state.lastSeen.Before(cutoff) {
			delete(l.tenants, key)
			removed++
		}
	}
	return removed
}

// Runs periodic sweeps until the context is canceled.
func (l *LocalLimiter) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := l.Sweep(); removed > 0 {
					log.Printf("Rate limit janitor removed %d idle tenants", removed)
				}
			}
		}
	}()
}

func (l *LocalLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tenants)
}
