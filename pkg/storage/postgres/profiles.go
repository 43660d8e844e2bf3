package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/campusauth/pkg/auth"
)

// ProfileStore implements auth.ProfileProvider over the role profile tables.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore creates a profile store over db.
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Profile returns role-specific fields. A missing profile row yields an
// empty map; admins have no profile table.
func (s *ProfileStore) Profile(ctx context.Context, acct *auth.Account) (map[string]any, error) {
	switch auth.Canonicalize(string(acct.Role)) {
	case auth.RoleStudent:
		return s.student(ctx, acct.ID)
	case auth.RoleTeacher:
		return s.teacher(ctx, acct.ID)
	default:
		return map[string]any{}, nil
	}
}

func (s *ProfileStore) student(ctx context.Context, id int64) (map[string]any, error) {
	var (
		fullName, rollNo, session sql.NullString
		semester                  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT full_name, roll_no, semester, session
		FROM student_profiles WHERE account_id = $1
	`, id).Scan(&fullName, &rollNo, &semester, &session)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query student profile: %w", err)
	}

	out := map[string]any{}
	putString(out, "full_name", fullName)
	putString(out, "roll_no", rollNo)
	putString(out, "session", session)
	if semester.Valid {
		out["semester"] = semester.Int64
	}
	return out, nil
}

func (s *ProfileStore) teacher(ctx context.Context, id int64) (map[string]any, error) {
	var fullName, department, designation sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT full_name, department, designation
		FROM teacher_profiles WHERE account_id = $1
	`, id).Scan(&fullName, &department, &designation)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query teacher profile: %w", err)
	}

	out := map[string]any{}
	putString(out, "full_name", fullName)
	putString(out, "department", department)
	putString(out, "designation", designation)
	return out, nil
}

func putString(m map[string]any, key string, v sql.NullString) {
	if v.Valid {
		m[key] = v.String
	}
}
