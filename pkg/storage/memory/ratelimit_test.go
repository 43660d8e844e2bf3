package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	clock := &manualClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiterWithClock(clock.Now)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		ok, err := rl.Allow(ctx, "10.0.0.1", "login_attempt", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "call %d", i)
	}
	ok, err := rl.Allow(ctx, "10.0.0.1", "login_attempt", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "6th call within the window")

	clock.Advance(59 * time.Second)
	ok, _ = rl.Allow(ctx, "10.0.0.1", "login_attempt", 5, time.Minute)
	assert.False(t, ok)

	clock.Advance(time.Second)
	ok, _ = rl.Allow(ctx, "10.0.0.1", "login_attempt", 5, time.Minute)
	assert.True(t, ok, "window elapsed")
}

func TestRateLimiter_KeysAndActionsIndependent(t *testing.T) {
	rl := NewRateLimiter()
	ctx := context.Background()

	ok, _ := rl.Allow(ctx, "a", "login_attempt", 1, time.Minute)
	assert.True(t, ok)
	ok, _ = rl.Allow(ctx, "a", "login_attempt", 1, time.Minute)
	assert.False(t, ok)

	ok, _ = rl.Allow(ctx, "b", "login_attempt", 1, time.Minute)
	assert.True(t, ok)
	ok, _ = rl.Allow(ctx, "a", "password_change", 1, time.Minute)
	assert.True(t, ok)
}

func TestRateLimiter_ZeroLimitDenies(t *testing.T) {
	ok, err := NewRateLimiter().Allow(context.Background(), "k", "a", 0, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl := NewRateLimiter()
	ctx := context.Background()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := rl.Allow(ctx, "ip", "login_attempt", 5, time.Minute); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(5), allowed.Load())
}

func TestRateLimiter_Prune(t *testing.T) {
	clock := &manualClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiterWithClock(clock.Now)
	ctx := context.Background()

	_, _ = rl.Allow(ctx, "short", "a", 5, time.Second)
	_, _ = rl.Allow(ctx, "long", "a", 5, time.Hour)
	require.Equal(t, 2, rl.Len())

	removed, err := rl.Prune(ctx, clock.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := NewRateLimiter()
	ctx := context.Background()

	_, _ = rl.Allow(ctx, "ip", "login_attempt", 1, time.Minute)
	ok, _ := rl.Allow(ctx, "ip", "login_attempt", 1, time.Minute)
	require.False(t, ok)

	require.NoError(t, rl.Reset(ctx, "ip", "login_attempt"))
	assert.Zero(t, rl.Len())

	ok, err := rl.Allow(ctx, "ip", "login_attempt", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
