// Package cache puts a local LRU in front of a revocation registry.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/campusauth/pkg/auth"
)

// RevocationCache remembers positive IsRevoked answers. A revoked token stays
// revoked until it expires, so a hit can be trusted for the entry's lifetime.
// Negative answers always go to the backing registry; caching them would hide
// logouts performed on another instance.
type RevocationCache struct {
	next  auth.RevocationRegistry
	cache *lru.LRU[string, struct{}]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRevocationCache wraps next with an LRU of at most size entries, each
// kept for ttl.
func NewRevocationCache(next auth.RevocationRegistry, size int, ttl time.Duration) *RevocationCache {
	if size <= 0 {
		size = 10000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RevocationCache{
		next:  next,
		cache: lru.NewLRU[string, struct{}](size, nil, ttl),
	}
}

// Revoke writes through to the backing registry, then caches the entry.
func (c *RevocationCache) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := c.next.Revoke(ctx, jti, expiresAt); err != nil {
		return err
	}
	c.cache.Add(jti, struct{}{})
	return nil
}

// IsRevoked answers from the cache when it holds jti.
func (c *RevocationCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if _, ok := c.cache.Get(jti); ok {
		c.hits.Add(1)
		return true, nil
	}
	c.misses.Add(1)

	revoked, err := c.next.IsRevoked(ctx, jti)
	if err != nil {
		return false, err
	}
	if revoked {
		c.cache.Add(jti, struct{}{})
	}
	return revoked, nil
}

// Prune delegates to the backing registry. Cached entries age out by TTL.
func (c *RevocationCache) Prune(ctx context.Context, now time.Time) (int64, error) {
	return c.next.Prune(ctx, now)
}

// Stats returns cache hit and miss counts.
func (c *RevocationCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached entries.
func (c *RevocationCache) Len() int {
	return c.cache.Len()
}
