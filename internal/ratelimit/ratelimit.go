// Package ratelimit throttles mixer commands per client.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultMutationRateLimit = 10
	DefaultMutationBurst     = 5
	DefaultWindowSize        = time.Second

	// Keys idle for this long are dropped on the next sweep.
	idleTimeout = 5 * time.Minute
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*entry
	limit     rate.Limit
	burst     int
	nextSweep time.Time
}

// New returns a limiter that refills at r events per second and allows
// bursts of up to burst events.
func New(r rate.Limit, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*entry),
		limit:    r,
		burst:    burst,
	}
}

// NewRateLimiter allows limit events per window for each key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return New(rate.Every(window/time.Duration(max(limit, 1))), limit)
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.After(rl.nextSweep) {
		rl.sweep(now)
		rl.nextSweep = now.Add(idleTimeout)
	}

	e, ok := rl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Forget drops the bucket for key, typically when a client disconnects.
func (rl *RateLimiter) Forget(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, key)
}

func (rl *RateLimiter) sweep(now time.Time) {
	for key, e := range rl.limiters {
		if now.Sub(e.lastSeen) > idleTimeout {
			delete(rl.limiters, key)
		}
	}
}
