// Package rate provides keyed rate limiting.
package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter limits operations per key.
type Limiter interface {
	Allow(key string) (bool, error)
}

const (
	// Keys idle for longer than this are forgotten. A forgotten key starts
	// again with a full burst, which an idle key would have refilled to anyway.
	idleKeyTTL = 10 * time.Minute

	sweepInterval = time.Minute
)

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type localRateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*keyedLimiter
	lastSweep time.Time
}

// NewLocalRateLimiter returns an in-memory limiter allowing limit operations
// per second per key, with a burst of the same size (at least 1).
func NewLocalRateLimiter(limit rate.Limit) Limiter {
	return newLocalRateLimiter(limit, time.Now)
}

func newLocalRateLimiter(limit rate.Limit, now func() time.Time) *localRateLimiter {
	burst := int(limit)
	if burst < 1 {
		burst = 1
	}

	return &localRateLimiter{
		limit:     limit,
		burst:     burst,
		now:       now,
		limiters:  make(map[string]*keyedLimiter),
		lastSweep: now(),
	}
}

func (l *localRateLimiter) Allow(key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &keyedLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1), nil
}

func (l *localRateLimiter) sweep(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > idleKeyTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

func (l *localRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// NoLimiter never limits operations.
type NoLimiter struct{}

func (NoLimiter) Allow(string) (bool, error) {
	return true, nil
}
