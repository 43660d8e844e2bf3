package memory

import (
	"context"
	"sync"
	"time"
)

// RevocationRegistry keeps revoked token ids with their expiry.
type RevocationRegistry struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewRevocationRegistry creates an empty registry.
func NewRevocationRegistry() *RevocationRegistry {
	return &RevocationRegistry{entries: make(map[string]time.Time)}
}

// Revoke records jti. Re-revoking keeps the original expiry.
func (r *RevocationRegistry) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[jti]; !ok {
		r.entries[jti] = expiresAt
	}
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (r *RevocationRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[jti]
	return ok, nil
}

// Prune removes entries that expired before now.
func (r *RevocationRegistry) Prune(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for jti, exp := range r.entries {
		if exp.Before(now) {
			delete(r.entries, jti)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries.
func (r *RevocationRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
