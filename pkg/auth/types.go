package auth

import "time"

// Status is the lifecycle state of an account. Accounts are never deleted,
// only deactivated.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Account is a stored identity record.
type Account struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Never serialized
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Active reports whether the account may log in.
func (a *Account) Active() bool {
	return a.Status == StatusActive
}

// Identity is the verified subject of a request, extracted from a token.
type Identity struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	TokenID   string    `json:"jti"`
	ExpiresAt time.Time `json:"exp"`
}

// HasRole reports whether the identity's canonical role matches any of roles.
func (id *Identity) HasRole(roles ...Role) bool {
	if id == nil {
		return false
	}
	for _, r := range roles {
		if SameRole(string(id.Role), string(r)) {
			return true
		}
	}
	return false
}

// Subject is the input to token issuance.
type Subject struct {
	UserID   int64
	Username string
	Role     Role
}

// LoginRequest carries credentials for Gateway.Login.
type LoginRequest struct {
	Username string
	Password string
	// Role is optional; when set it must match the stored role after aliasing.
	Role string
	// Source identifies the caller for rate limiting, usually the client IP.
	Source string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *Account
	// Profile holds role-specific fields from the profile provider.
	Profile map[string]any
}

// UserView flattens the sanitized account and its profile fields for responses.
// Account fields win over profile fields with the same key.
func (r *LoginResult) UserView() map[string]any {
	out := make(map[string]any, len(r.Profile)+5)
	for k, v := range r.Profile {
		out[k] = v
	}
	out["id"] = r.Account.ID
	out["username"] = r.Account.Username
	out["role"] = r.Account.Role
	out["status"] = r.Account.Status
	if r.Account.LastLoginAt != nil {
		out["last_login_at"] = r.Account.LastLoginAt
	}
	return out
}
