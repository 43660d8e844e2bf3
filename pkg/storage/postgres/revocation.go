package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevocationRegistry implements auth.RevocationRegistry on the
// revoked_tokens table.
type RevocationRegistry struct {
	db  *sql.DB
	now func() time.Time
}

// NewRevocationRegistry creates a registry over db.
func NewRevocationRegistry(db *sql.DB) *RevocationRegistry {
	return &RevocationRegistry{db: db, now: time.Now}
}

// Revoke records jti; a second revocation of the same id is a no-op.
func (r *RevocationRegistry) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at, revoked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING
	`, jti, expiresAt.UTC(), r.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti is in the registry.
func (r *RevocationRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)
	`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}

// Prune deletes entries whose token would already be rejected as expired.
func (r *RevocationRegistry) Prune(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune revoked tokens: %w", err)
	}
	return res.RowsAffected()
}
