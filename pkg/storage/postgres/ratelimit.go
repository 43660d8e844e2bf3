package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// allowQuery starts, resets or increments a counter in one statement. The
// ON CONFLICT row lock serializes concurrent attempts on the same key, so
// two requests can never both observe a count below the limit. Counting
// stops at limit+1.
const allowQuery = `
	INSERT INTO rate_limits (key, action, count, window_start, window_end)
	VALUES ($1, $2, 1, $3, $4)
	ON CONFLICT (key, action) DO UPDATE SET
		count = CASE
			WHEN rate_limits.window_end <= $3 THEN 1
			WHEN rate_limits.count > $5 THEN rate_limits.count
			ELSE rate_limits.count + 1
		END,
		window_start = CASE WHEN rate_limits.window_end <= $3 THEN $3 ELSE rate_limits.window_start END,
		window_end = CASE WHEN rate_limits.window_end <= $3 THEN $4 ELSE rate_limits.window_end END
	RETURNING count
`

// RateLimiter implements auth.RateLimiter with fixed windows stored in the
// rate_limits table.
type RateLimiter struct {
	db  *sql.DB
	now func() time.Time
}

// NewRateLimiter creates a limiter over db.
func NewRateLimiter(db *sql.DB) *RateLimiter {
	return &RateLimiter{db: db, now: time.Now}
}

// WithClock returns a copy of the limiter reading time from now.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	cp := *rl
	cp.now = now
	return &cp
}

// Allow implements auth.RateLimiter.
func (rl *RateLimiter) Allow(ctx context.Context, key, action string, limit int, window time.Duration) (bool, error) {
	now := rl.now().UTC()

	var count int
	err := rl.db.QueryRowContext(ctx, allowQuery, key, action, now, now.Add(window), limit).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to update rate limit counter: %w", err)
	}
	return count <= limit, nil
}

// Reset deletes the counter for (key, action).
func (rl *RateLimiter) Reset(ctx context.Context, key, action string) error {
	if _, err := rl.db.ExecContext(ctx, `DELETE FROM rate_limits WHERE key = $1 AND action = $2`, key, action); err != nil {
		return fmt.Errorf("failed to reset rate limit counter: %w", err)
	}
	return nil
}

// Prune deletes counters whose window has ended.
func (rl *RateLimiter) Prune(ctx context.Context, now time.Time) (int64, error) {
	res, err := rl.db.ExecContext(ctx, `DELETE FROM rate_limits WHERE window_end <= $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune rate limit counters: %w", err)
	}
	return res.RowsAffected()
}
