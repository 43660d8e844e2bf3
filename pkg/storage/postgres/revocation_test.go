package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevocationRegistry_Revoke(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(24 * time.Hour)
	r := NewRevocationRegistry(db)
	r.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (jti) DO NOTHING")).
			WithArgs("abc123", exp, now).
			WillReturnResult(sqlmock.NewResult(0, int64(1-i)))
	}

	require.NoError(t, r.Revoke(context.Background(), "abc123", exp))
	require.NoError(t, r.Revoke(context.Background(), "abc123", exp), "second revoke is a no-op")
}

func TestRevocationRegistry_IsRevoked(t *testing.T) {
	db, mock := newMock(t)
	r := NewRevocationRegistry(db)

	mock.ExpectQuery("SELECT EXISTS").WithArgs("yes").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("no").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("err").
		WillReturnError(errors.New("connection refused"))

	revoked, err := r.IsRevoked(context.Background(), "yes")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.IsRevoked(context.Background(), "no")
	require.NoError(t, err)
	assert.False(t, revoked)

	_, err = r.IsRevoked(context.Background(), "err")
	assert.Error(t, err)
}

func TestRevocationRegistry_Prune(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM revoked_tokens WHERE expires_at < $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	removed, err := NewRevocationRegistry(db).Prune(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestEnsureSchema(t *testing.T) {
	db, mock := newMock(t)
	for range schemaStatements {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, EnsureSchema(context.Background(), db))
}

func TestEnsureSchema_Error(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").WillReturnError(errors.New("permission denied"))

	err := EnsureSchema(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 1")
}
