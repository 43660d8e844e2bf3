package redisstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/campusauth/pkg/storage"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := storage.DefaultConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())

	cfg.RedisURL = "not a url"
	_, err = NewClient(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	mr, client := setupRedis(t)
	rl := NewRateLimiter(client, "test")
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		ok, err := rl.Allow(ctx, "10.0.0.1", "login_attempt", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "call %d", i)
	}
	ok, err := rl.Allow(ctx, "10.0.0.1", "login_attempt", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists("test:ratelimit:login_attempt:10.0.0.1"))
	assert.Equal(t, time.Minute, mr.TTL("test:ratelimit:login_attempt:10.0.0.1"))

	mr.FastForward(time.Minute)
	ok, err = rl.Allow(ctx, "10.0.0.1", "login_attempt", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "window elapsed")
}

func TestRateLimiter_CounterStopsAtLimitPlusOne(t *testing.T) {
	mr, client := setupRedis(t)
	rl := NewRateLimiter(client, "")
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := rl.Allow(ctx, "ip", "login_attempt", 3, time.Minute)
		require.NoError(t, err)
	}
	v, err := mr.Get("portal:ratelimit:login_attempt:ip")
	require.NoError(t, err)
	assert.Equal(t, "4", v)
}

func TestRateLimiter_WindowNotExtended(t *testing.T) {
	mr, client := setupRedis(t)
	rl := NewRateLimiter(client, "")
	ctx := context.Background()

	_, err := rl.Allow(ctx, "ip", "a", 5, time.Minute)
	require.NoError(t, err)
	mr.FastForward(30 * time.Second)
	_, err = rl.Allow(ctx, "ip", "a", 5, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, mr.TTL("portal:ratelimit:a:ip"))
}

func TestRateLimiter_Concurrent(t *testing.T) {
	_, client := setupRedis(t)
	rl := NewRateLimiter(client, "")
	ctx := context.Background()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := rl.Allow(ctx, "ip", "login_attempt", 5, time.Minute)
			assert.NoError(t, err)
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(5), allowed.Load())
}

func TestRateLimiter_Reset(t *testing.T) {
	mr, client := setupRedis(t)
	rl := NewRateLimiter(client, "")
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, _ = rl.Allow(ctx, "ip", "a", 5, time.Minute)
	}
	ok, err := rl.Allow(ctx, "ip", "a", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rl.Reset(ctx, "ip", "a"))
	assert.False(t, mr.Exists("portal:ratelimit:a:ip"))

	ok, err = rl.Allow(ctx, "ip", "a", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Resetting a key with no counter is fine.
	assert.NoError(t, rl.Reset(ctx, "nobody", "a"))
}

func TestRateLimiter_BackendDown(t *testing.T) {
	mr, client := setupRedis(t)
	rl := NewRateLimiter(client, "")
	mr.Close()

	ok, err := rl.Allow(context.Background(), "ip", "a", 5, time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, rl.Reset(context.Background(), "ip", "a"))
}

func TestRevocationRegistry(t *testing.T) {
	mr, client := setupRedis(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRevocationRegistry(client, "").WithClock(func() time.Time { return now })
	ctx := context.Background()

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	require.NoError(t, r.Revoke(ctx, "jti-1", now.Add(2*time.Hour)), "idempotent")

	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl := mr.TTL("portal:revoked:jti-1")
	assert.True(t, ttl > time.Hour-time.Second && ttl <= time.Hour+time.Millisecond, "ttl %v tracks the first expiry", ttl)

	mr.FastForward(time.Hour + time.Second)
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entry expires with the token")

	removed, err := r.Prune(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRevocationRegistry_AlreadyExpired(t *testing.T) {
	mr, client := setupRedis(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRevocationRegistry(client, "p").WithClock(func() time.Time { return now })

	require.NoError(t, r.Revoke(context.Background(), "old", now.Add(-time.Second)))
	assert.False(t, mr.Exists("p:revoked:old"))
}

func TestRevocationRegistry_BackendDown(t *testing.T) {
	mr, client := setupRedis(t)
	r := NewRevocationRegistry(client, "")
	mr.Close()

	_, err := r.IsRevoked(context.Background(), "jti")
	assert.Error(t, err)
	assert.Error(t, r.Revoke(context.Background(), "jti", time.Now().Add(time.Hour)))
}
