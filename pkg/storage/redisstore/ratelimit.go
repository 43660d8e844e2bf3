package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// allowScript increments the counter unless it is already past the limit
// and (re)arms the window TTL when the key has none. Running it as one
// script makes the read, increment and expiry atomic.
//
// KEYS[1] counter key; ARGV[1] window in milliseconds; ARGV[2] limit.
var allowScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current > tonumber(ARGV[2]) then
	return current
end
current = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RateLimiter implements auth.RateLimiter with one expiring counter per
// (key, action). The key's TTL is the window.
type RateLimiter struct {
	client *redis.Client
	prefix string
}

// NewRateLimiter creates a Redis-backed limiter.
func NewRateLimiter(client *redis.Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: keyPrefix(prefix)}
}

func (rl *RateLimiter) key(key, action string) string {
	return fmt.Sprintf("%s:ratelimit:%s:%s", rl.prefix, action, key)
}

// Allow implements auth.RateLimiter.
func (rl *RateLimiter) Allow(ctx context.Context, key, action string, limit int, window time.Duration) (bool, error) {
	windowMs := window.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1
	}

	count, err := allowScript.Run(ctx, rl.client, []string{rl.key(key, action)}, windowMs, limit).Int64()
	if err != nil {
		return false, fmt.Errorf("redis rate limit failed: %w", err)
	}
	return count <= int64(limit), nil
}

// Reset deletes the counter so the next attempt opens a new window.
func (rl *RateLimiter) Reset(ctx context.Context, key, action string) error {
	if err := rl.client.Del(ctx, rl.key(key, action)).Err(); err != nil {
		return fmt.Errorf("redis rate limit reset failed: %w", err)
	}
	return nil
}
