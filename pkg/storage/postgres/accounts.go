package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/platinummonkey/campusauth/pkg/auth"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

const accountColumns = `id, username, password_hash, role, status, created_at, last_login_at`

// AccountStore implements auth.AccountStore.
type AccountStore struct {
	db *sql.DB
}

// NewAccountStore creates an account store over db.
func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*auth.Account, error) {
	var (
		acct      auth.Account
		role      string
		status    string
		lastLogin sql.NullTime
	)
	err := row.Scan(&acct.ID, &acct.Username, &acct.PasswordHash, &role, &status, &acct.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	acct.Role = auth.Role(role)
	acct.Status = auth.Status(status)
	if lastLogin.Valid {
		t := lastLogin.Time
		acct.LastLoginAt = &t
	}
	return &acct, nil
}

// FindByUsername looks an account up case-insensitively.
func (s *AccountStore) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts WHERE LOWER(username) = LOWER($1)
	`, strings.TrimSpace(username))

	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return acct, nil
}

// FindByID looks an account up by primary key.
func (s *AccountStore) FindByID(ctx context.Context, id int64) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts WHERE id = $1
	`, id)

	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return acct, nil
}

// Create inserts acct and fills in its ID and CreatedAt.
func (s *AccountStore) Create(ctx context.Context, acct *auth.Account) error {
	if acct.Status == "" {
		acct.Status = auth.StatusActive
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (username, password_hash, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at
	`, strings.TrimSpace(acct.Username), acct.PasswordHash, string(acct.Role), string(acct.Status)).Scan(&acct.ID, &acct.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return auth.ErrAccountExists
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// TouchLastLogin records a successful login time.
func (s *AccountStore) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return s.exec(ctx, `
		UPDATE accounts SET last_login_at = $2, updated_at = $2
		WHERE id = $1
	`, id, at)
}

// UpdatePassword replaces the stored digest.
func (s *AccountStore) UpdatePassword(ctx context.Context, id int64, digest string) error {
	return s.exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`, id, digest)
}

// SetStatus activates or deactivates an account.
func (s *AccountStore) SetStatus(ctx context.Context, id int64, status auth.Status) error {
	return s.exec(ctx, `
		UPDATE accounts SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, id, string(status))
}

func (s *AccountStore) exec(ctx context.Context, query string, id int64, arg interface{}) error {
	res, err := s.db.ExecContext(ctx, query, id, arg)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

