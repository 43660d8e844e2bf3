// Package memory provides in-process implementations of the auth stores.
// They hold state in mutex-guarded maps and are only suitable for a single
// process: tests, local development and the demo server.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/campusauth/pkg/auth"
)

// AccountStore keeps accounts in memory.
type AccountStore struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]*auth.Account
	byUsername map[string]int64
	now        func() time.Time
}

// NewAccountStore creates an empty store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		byID:       make(map[int64]*auth.Account),
		byUsername: make(map[string]int64),
		now:        time.Now,
	}
}

func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// FindByUsername returns a copy of the matching account.
func (s *AccountStore) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[usernameKey(username)]
	if !ok {
		return nil, auth.ErrAccountNotFound
	}
	return copyAccount(s.byID[id]), nil
}

// FindByID returns a copy of the matching account.
func (s *AccountStore) FindByID(ctx context.Context, id int64) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrAccountNotFound
	}
	return copyAccount(acct), nil
}

// Create stores acct and assigns its ID.
func (s *AccountStore) Create(ctx context.Context, acct *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usernameKey(acct.Username)
	if _, exists := s.byUsername[key]; exists {
		return auth.ErrAccountExists
	}

	s.nextID++
	acct.ID = s.nextID
	if acct.Status == "" {
		acct.Status = auth.StatusActive
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = s.now().UTC()
	}

	s.byID[acct.ID] = copyAccount(acct)
	s.byUsername[key] = acct.ID
	return nil
}

// TouchLastLogin records a successful login.
func (s *AccountStore) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return s.update(id, func(a *auth.Account) {
		t := at
		a.LastLoginAt = &t
	})
}

// UpdatePassword replaces the stored digest.
func (s *AccountStore) UpdatePassword(ctx context.Context, id int64, digest string) error {
	return s.update(id, func(a *auth.Account) {
		a.PasswordHash = digest
	})
}

// SetStatus activates or deactivates an account.
func (s *AccountStore) SetStatus(ctx context.Context, id int64, status auth.Status) error {
	return s.update(id, func(a *auth.Account) {
		a.Status = status
	})
}

func (s *AccountStore) update(id int64, fn func(*auth.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byID[id]
	if !ok {
		return auth.ErrAccountNotFound
	}
	fn(acct)
	return nil
}

func copyAccount(a *auth.Account) *auth.Account {
	cp := *a
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		cp.LastLoginAt = &t
	}
	return &cp
}
