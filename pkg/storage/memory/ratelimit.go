package memory

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count     int
	windowEnd time.Time
}

// RateLimiter is a fixed-window counter keyed by (key, action). A single
// mutex makes each increment-and-compare atomic.
type RateLimiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

// NewRateLimiter creates a limiter using the wall clock.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithClock(time.Now)
}

// NewRateLimiterWithClock creates a limiter reading time from now.
func NewRateLimiterWithClock(now func() time.Time) *RateLimiter {
	return &RateLimiter{
		counters: make(map[string]*counter),
		now:      now,
	}
}

// Allow implements auth.RateLimiter.
func (rl *RateLimiter) Allow(ctx context.Context, key, action string, limit int, window time.Duration) (bool, error) {
	now := rl.now()
	id := action + "|" + key

	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.counters[id]
	if !ok || !now.Before(c.windowEnd) {
		rl.counters[id] = &counter{count: 1, windowEnd: now.Add(window)}
		return limit >= 1, nil
	}

	// Stop counting at limit+1 so a flood cannot overflow the counter.
	if c.count <= limit {
		c.count++
	}
	return c.count <= limit, nil
}

// Prune drops counters whose window ended before now.
func (rl *RateLimiter) Prune(ctx context.Context, now time.Time) (int64, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	var removed int64
	for id, c := range rl.counters {
		if !now.Before(c.windowEnd) {
			delete(rl.counters, id)
			removed++
		}
	}
	return removed, nil
}

// Reset forgets the counter for (key, action).
func (rl *RateLimiter) Reset(ctx context.Context, key, action string) error {
	rl.mu.Lock()
	delete(rl.counters, action+"|"+key)
	rl.mu.Unlock()
	return nil
}

// Len returns the number of live counters.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.counters)
}
