package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RevocationRegistry implements auth.RevocationRegistry. Each entry is a key
// whose TTL ends at the token's own expiry, so Redis prunes it.
type RevocationRegistry struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRevocationRegistry creates a Redis-backed registry.
func NewRevocationRegistry(client *redis.Client, prefix string) *RevocationRegistry {
	return &RevocationRegistry{client: client, prefix: keyPrefix(prefix), now: time.Now}
}

// WithClock returns a copy of the registry reading time from now.
func (r *RevocationRegistry) WithClock(now func() time.Time) *RevocationRegistry {
	cp := *r
	cp.now = now
	return &cp
}

func (r *RevocationRegistry) key(jti string) string {
	return fmt.Sprintf("%s:revoked:%s", r.prefix, jti)
}

// Revoke records jti until expiresAt. Tokens that have already expired need
// no entry. SETNX keeps the first revocation.
func (r *RevocationRegistry) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	// Redis expiry has millisecond resolution; round up so the entry never
	// disappears before the token does.
	ttl = ttl.Truncate(time.Millisecond) + time.Millisecond

	if err := r.client.SetNX(ctx, r.key(jti), expiresAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke failed: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has a live entry.
func (r *RevocationRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis revocation lookup failed: %w", err)
	}
	return n > 0, nil
}

// Prune is a no-op: entries expire through their TTL.
func (r *RevocationRegistry) Prune(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
