package api

import (
	"math"
	"net/http"
	"time"

	"github.com/platinummonkey/campusauth/pkg/auth"
	"github.com/platinummonkey/campusauth/pkg/httputil"
	"github.com/platinummonkey/campusauth/pkg/middleware"
	"github.com/platinummonkey/campusauth/pkg/observability"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      map[string]any `json:"user"`
}

// UserClaims is the identity echoed by verify and the role probes
type UserClaims struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
	// ExpiresAt is the token expiry
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyResponse is returned by GET /auth/verify
type VerifyResponse struct {
	User UserClaims `json:"user"`
}

// ChangePasswordRequest is the body of POST /auth/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func userClaims(id *auth.Identity) UserClaims {
	return UserClaims{
		UserID:    id.UserID,
		Username:  id.Username,
		Role:      id.Role,
		ExpiresAt: id.ExpiresAt,
	}
}

// login handles POST /auth/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteAuthError(w, auth.Validation("Username and password are required"), 0)
		return
	}

	res, err := s.auth.Login(r.Context(), auth.LoginRequest{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		Source:   httputil.ClientIP(r, s.opts.TrustProxy),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, LoginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      res.UserView(),
	})
}

// logout handles POST /auth/logout
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.BearerToken(r)
	if !ok {
		httputil.WriteAuthError(w, auth.ErrUnauthorized, 0)
		return
	}
	if _, err := s.auth.Logout(r.Context(), token); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "Logged out successfully")
}

// verify handles GET /auth/verify
func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, VerifyResponse{User: userClaims(middleware.GetIdentity(r))})
}

// changePassword handles POST /auth/password
func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := s.auth.ChangePassword(r.Context(), middleware.GetIdentity(r), req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "Password updated")
}

// ping answers the role-gated probes
func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, VerifyResponse{User: userClaims(middleware.GetIdentity(r))})
}

// writeError logs server errors with their cause and writes the client-safe
// form. Rate-limit responses carry Retry-After.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := auth.AsError(err)
	if e.Code == auth.CodeServer {
		observability.LoggerFrom(r.Context(), s.opts.Logger).WithError(err).Error("request failed")
	}
	httputil.WriteAuthError(w, e, s.retryAfterSeconds())
}

func (s *Server) retryAfterSeconds() int {
	return int(math.Ceil(s.auth.Policy().Window.Seconds()))
}
