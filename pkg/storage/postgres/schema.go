package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements create every table the auth core owns. They are
// idempotent and run in order.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(255) NOT NULL,
		password_hash TEXT NOT NULL,
		role VARCHAR(20) NOT NULL CHECK (role IN ('admin', 'teacher', 'staff', 'student')),
		status VARCHAR(20) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive')),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		last_login_at TIMESTAMP WITH TIME ZONE
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_username ON accounts (LOWER(username))`,

	`CREATE TABLE IF NOT EXISTS student_profiles (
		account_id BIGINT PRIMARY KEY REFERENCES accounts(id),
		full_name VARCHAR(255),
		roll_no VARCHAR(64),
		semester INTEGER,
		session VARCHAR(32)
	)`,
	`CREATE TABLE IF NOT EXISTS teacher_profiles (
		account_id BIGINT PRIMARY KEY REFERENCES accounts(id),
		full_name VARCHAR(255),
		department VARCHAR(255),
		designation VARCHAR(255)
	)`,

	`CREATE TABLE IF NOT EXISTS rate_limits (
		key VARCHAR(255) NOT NULL,
		action VARCHAR(64) NOT NULL,
		count INTEGER NOT NULL,
		window_start TIMESTAMP WITH TIME ZONE NOT NULL,
		window_end TIMESTAMP WITH TIME ZONE NOT NULL,
		PRIMARY KEY (key, action)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rate_limits_window_end ON rate_limits (window_end)`,

	`CREATE TABLE IF NOT EXISTS revoked_tokens (
		jti VARCHAR(64) PRIMARY KEY,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		revoked_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires_at ON revoked_tokens (expires_at)`,
}

// EnsureSchema creates the auth tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}
	return nil
}
