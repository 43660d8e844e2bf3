package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/platinummonkey/campusauth/pkg/auth"
	"github.com/platinummonkey/campusauth/pkg/contextkeys"
	"github.com/platinummonkey/campusauth/pkg/httputil"
)

// Authenticator verifies bearer tokens. *auth.Gateway implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Identity, error)
}

// AuthMiddleware provides bearer-token authentication
type AuthMiddleware struct {
	authenticator Authenticator
	optional      bool // If true, allow requests without a token
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authenticator Authenticator, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		optional:      optional,
	}
}

// RequireAuth is shorthand for NewAuthMiddleware(a, false).Handler.
func RequireAuth(a Authenticator) func(http.Handler) http.Handler {
	return NewAuthMiddleware(a, false).Handler
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := httputil.BearerToken(r)
		if !ok {
			if m.optional && r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteAuthError(w, auth.ErrUnauthorized, 0)
			return
		}

		identity, err := m.authenticator.Authenticate(r.Context(), token)
		if err != nil {
			httputil.WriteAuthError(w, err, 0)
			return
		}

		ctx := WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithIdentity stores identity in ctx, along with its user ID for logging.
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	ctx = contextkeys.WithIdentity(ctx, identity)
	return contextkeys.WithUserID(ctx, strconv.FormatInt(identity.UserID, 10))
}

// IdentityFrom extracts the authenticated identity, or nil.
func IdentityFrom(ctx context.Context) *auth.Identity {
	identity, ok := ctx.Value(contextkeys.IdentityKey).(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetIdentity extracts the identity from a request
func GetIdentity(r *http.Request) *auth.Identity {
	return IdentityFrom(r.Context())
}

// RequireRole creates middleware that admits only identities whose canonical
// role is one of roles. Requests without an identity get 401.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.RequireRole(GetIdentity(r), roles...); err != nil {
				httputil.WriteAuthError(w, err, 0)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
