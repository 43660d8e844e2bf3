package auth

import (
	"context"
	"time"
)

// AccountStore persists accounts.
type AccountStore interface {
	// FindByUsername returns ErrAccountNotFound when no account matches.
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	// Create assigns acct.ID and returns ErrAccountExists on a duplicate username.
	Create(ctx context.Context, acct *Account) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, digest string) error
	SetStatus(ctx context.Context, id int64, status Status) error
}

// RateLimiter counts attempts per (key, action) in fixed windows.
//
// Allow starts a new window with count 1 when none exists or the current one
// has elapsed, otherwise increments. It returns true only while the
// post-increment count is within limit. Implementations must make the
// increment and comparison atomic.
type RateLimiter interface {
	Allow(ctx context.Context, key, action string, limit int, window time.Duration) (bool, error)
}

// RevocationRegistry records revoked token ids until their natural expiry.
type RevocationRegistry interface {
	// Revoke is idempotent.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// Prune deletes entries whose stored expiry is before now.
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// ProfileProvider supplies role-specific fields merged into the login response.
type ProfileProvider interface {
	Profile(ctx context.Context, acct *Account) (map[string]any, error)
}

// ProfileFunc adapts a function to ProfileProvider.
type ProfileFunc func(ctx context.Context, acct *Account) (map[string]any, error)

// Profile calls f.
func (f ProfileFunc) Profile(ctx context.Context, acct *Account) (map[string]any, error) {
	return f(ctx, acct)
}
