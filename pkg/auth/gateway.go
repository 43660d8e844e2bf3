package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/platinummonkey/campusauth/pkg/observability"
)

var tracer = observability.Tracer("github.com/platinummonkey/campusauth/pkg/auth")

// Rate-limited actions.
const (
	ActionLogin          = "login_attempt"
	ActionPasswordChange = "password_change"
)

const (
	DefaultLoginLimit  = 5
	DefaultLoginWindow = 60 * time.Second

	MinPasswordLength = 8
	// bcrypt ignores input beyond 72 bytes; longer passwords are rejected.
	MaxPasswordLength = 72
)

// timingPassword is hashed once at startup; unknown usernames are verified
// against its digest so they cost the same as a wrong password.
const timingPassword = "timing-equalizer-not-a-real-password"

// LoginPolicy bounds login attempts per source.
type LoginPolicy struct {
	Limit  int
	Window time.Duration
}

// GatewayConfig wires a Gateway. Accounts, Hasher, Codec, Limiter and
// Revocations are required.
type GatewayConfig struct {
	Accounts    AccountStore
	Hasher      PasswordHasher
	Codec       *Codec
	Limiter     RateLimiter
	Revocations RevocationRegistry
	Profiles    ProfileProvider
	Policy      LoginPolicy
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	Now         func() time.Time
}

// Gateway orchestrates login, request authentication and logout.
type Gateway struct {
	accounts    AccountStore
	hasher      PasswordHasher
	codec       *Codec
	limiter     RateLimiter
	revocations RevocationRegistry
	profiles    ProfileProvider
	policy      LoginPolicy
	logger      *observability.Logger
	metrics     *observability.Metrics
	now         func() time.Time

	timingDigest string
}

// NewGateway validates cfg and builds a Gateway.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	switch {
	case cfg.Accounts == nil:
		return nil, errors.New("account store is required")
	case cfg.Hasher == nil:
		return nil, errors.New("password hasher is required")
	case cfg.Codec == nil:
		return nil, errors.New("token codec is required")
	case cfg.Limiter == nil:
		return nil, errors.New("rate limiter is required")
	case cfg.Revocations == nil:
		return nil, errors.New("revocation registry is required")
	}

	if cfg.Policy.Limit <= 0 {
		cfg.Policy.Limit = DefaultLoginLimit
	}
	if cfg.Policy.Window <= 0 {
		cfg.Policy.Window = DefaultLoginWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	digest, err := cfg.Hasher.Hash(timingPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare timing digest: %w", err)
	}

	return &Gateway{
		accounts:     cfg.Accounts,
		hasher:       cfg.Hasher,
		codec:        cfg.Codec,
		limiter:      cfg.Limiter,
		revocations:  cfg.Revocations,
		profiles:     cfg.Profiles,
		policy:       cfg.Policy,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		now:          cfg.Now,
		timingDigest: digest,
	}, nil
}

// Policy returns the effective login policy.
func (g *Gateway) Policy() LoginPolicy {
	return g.policy
}

// Login checks the rate limit, then credentials, role and status, and issues
// a token. The rate limit is always consulted before any account lookup.
func (g *Gateway) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	log := observability.LoggerFrom(ctx, g.logger).WithField("username", req.Username)

	res, err := g.login(ctx, req, log)
	if err != nil {
		e := AsError(err)
		span.SetAttributes(attribute.String("auth.outcome", e.Code))
		if e.Status >= 500 {
			span.SetStatus(codes.Error, e.Code)
		}
		g.metrics.RecordLogin(e.Code)
		if e.Code == CodeServer {
			log.WithError(err).Error("login failed")
		}
		return nil, e
	}

	span.SetAttributes(attribute.String("auth.outcome", "success"), attribute.String("auth.role", res.Account.Role.String()))
	g.metrics.RecordLogin("success")
	log.WithFields(map[string]interface{}{
		"user_id": res.Account.ID,
		"role":    res.Account.Role,
	}).Info("login succeeded")
	return res, nil
}

func (g *Gateway) login(ctx context.Context, req LoginRequest, log *observability.Logger) (*LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, Validation("Username and password are required")
	}

	source := req.Source
	if source == "" {
		source = "unknown"
	}
	if err := g.allow(ctx, source, ActionLogin); err != nil {
		if errors.Is(err, ErrRateLimited) {
			log.WithField("source", source).Warn("login rate limit exceeded")
		}
		return nil, err
	}

	acct, err := g.accounts.FindByUsername(ctx, username)
	if errors.Is(err, ErrAccountNotFound) {
		g.hasher.Verify(req.Password, g.timingDigest)
		log.Info("login rejected: unknown username")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		g.metrics.RecordStorageError("find_account")
		return nil, ErrServer.Wrap(fmt.Errorf("lookup account: %w", err))
	}

	start := time.Now()
	ok := g.hasher.Verify(req.Password, acct.PasswordHash)
	g.metrics.ObservePasswordVerify(time.Since(start))
	if !ok {
		log.WithField("user_id", acct.ID).Info("login rejected: wrong password")
		return nil, ErrInvalidCredentials
	}

	role := Canonicalize(string(acct.Role))
	if role == RoleUnknown {
		return nil, ErrServer.Wrap(fmt.Errorf("account %d has unknown role %q", acct.ID, acct.Role))
	}
	if req.Role != "" && Canonicalize(req.Role) != role {
		log.WithFields(map[string]interface{}{
			"requested_role": req.Role,
			"actual_role":    role,
		}).Info("login rejected: role mismatch")
		return nil, RoleMismatch(req.Role, role)
	}

	if !acct.Active() {
		log.WithField("user_id", acct.ID).Info("login rejected: account inactive")
		return nil, ErrAccountInactive
	}

	token, claims, err := g.codec.Issue(Subject{UserID: acct.ID, Username: acct.Username, Role: role})
	if err != nil {
		return nil, ErrServer.Wrap(err)
	}

	now := g.now().UTC()
	if err := g.accounts.TouchLastLogin(ctx, acct.ID, now); err != nil {
		g.metrics.RecordStorageError("touch_last_login")
		return nil, ErrServer.Wrap(fmt.Errorf("update last login: %w", err))
	}

	view := *acct
	view.PasswordHash = ""
	view.Role = role
	view.LastLoginAt = &now

	var profile map[string]any
	if g.profiles != nil {
		profile, err = g.profiles.Profile(ctx, &view)
		if err != nil {
			log.WithError(err).Warn("profile lookup failed; returning bare account")
			profile = nil
		}
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
		Account:   &view,
		Profile:   profile,
	}, nil
}

// Authenticate verifies a bearer token and returns its identity. Malformed,
// forged, expired and revoked tokens all yield ErrUnauthorized.
func (g *Gateway) Authenticate(ctx context.Context, token string) (*Identity, error) {
	ctx, span := tracer.Start(ctx, "auth.Authenticate")
	defer span.End()

	log := observability.LoggerFrom(ctx, g.logger)

	if token == "" {
		g.metrics.RecordVerification("missing")
		return nil, ErrUnauthorized
	}

	claims, err := g.codec.Decode(token)
	if err != nil {
		reason := "malformed"
		switch {
		case IsExpiry(err):
			reason = "expired"
		case IsBadSignature(err):
			reason = "bad_signature"
		}
		g.metrics.RecordVerification(reason)
		log.WithFields(map[string]interface{}{
			"token":  observability.RedactToken(token),
			"reason": reason,
		}).Debug("token rejected")
		return nil, ErrUnauthorized.Wrap(err)
	}

	revoked, err := g.revocations.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		g.metrics.RecordVerification("error")
		g.metrics.RecordStorageError("is_revoked")
		log.WithError(err).Error("revocation lookup failed")
		span.SetStatus(codes.Error, "revocation lookup failed")
		return nil, ErrServer.Wrap(err)
	}
	if revoked {
		g.metrics.RecordVerification("revoked")
		log.WithFields(map[string]interface{}{
			"token":  observability.RedactToken(token),
			"reason": "revoked",
		}).Debug("token rejected")
		return nil, ErrUnauthorized
	}

	g.metrics.RecordVerification("valid")
	return claims.Identity(), nil
}

// Revoke blacklists the identity's token until its natural expiry.
// Revoking an already revoked token succeeds.
func (g *Gateway) Revoke(ctx context.Context, id *Identity) error {
	if id == nil || id.TokenID == "" {
		return ErrUnauthorized
	}
	if err := g.revocations.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
		g.metrics.RecordStorageError("revoke")
		observability.LoggerFrom(ctx, g.logger).WithError(err).Error("token revocation failed")
		return ErrServer.Wrap(err)
	}
	g.metrics.RecordRevocation()
	return nil
}

// Logout authenticates token and revokes it.
func (g *Gateway) Logout(ctx context.Context, token string) (*Identity, error) {
	id, err := g.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := g.Revoke(ctx, id); err != nil {
		return nil, err
	}
	observability.LoggerFrom(ctx, g.logger).WithField("user_id", id.UserID).Info("logged out")
	return id, nil
}

// RequireRole fails with ErrUnauthorized when id is nil and ErrForbidden when
// its canonical role is not among roles.
func RequireRole(id *Identity, roles ...Role) error {
	if id == nil {
		return ErrUnauthorized
	}
	if !id.HasRole(roles...) {
		return ErrForbidden
	}
	return nil
}

// ChangePassword replaces the caller's password after verifying the current one.
func (g *Gateway) ChangePassword(ctx context.Context, id *Identity, current, next string) error {
	if id == nil {
		return ErrUnauthorized
	}
	if current == "" || next == "" {
		return Validation("Current and new password are required")
	}
	if len(next) < MinPasswordLength || len(next) > MaxPasswordLength {
		return Validation(fmt.Sprintf("New password must be %d to %d characters", MinPasswordLength, MaxPasswordLength))
	}

	log := observability.LoggerFrom(ctx, g.logger).WithField("user_id", id.UserID)

	if err := g.allow(ctx, fmt.Sprintf("user:%d", id.UserID), ActionPasswordChange); err != nil {
		return err
	}

	acct, err := g.accounts.FindByID(ctx, id.UserID)
	if errors.Is(err, ErrAccountNotFound) {
		return ErrUnauthorized
	}
	if err != nil {
		g.metrics.RecordStorageError("find_account")
		log.WithError(err).Error("password change lookup failed")
		return ErrServer.Wrap(err)
	}

	if !g.hasher.Verify(current, acct.PasswordHash) {
		log.Info("password change rejected: wrong current password")
		return ErrInvalidCredentials
	}

	digest, err := g.hasher.Hash(next)
	if err != nil {
		return ErrServer.Wrap(err)
	}
	if err := g.accounts.UpdatePassword(ctx, acct.ID, digest); err != nil {
		g.metrics.RecordStorageError("update_password")
		log.WithError(err).Error("password update failed")
		return ErrServer.Wrap(err)
	}

	log.Info("password changed")
	return nil
}

// allow consults the limiter. Limiter errors fail closed.
func (g *Gateway) allow(ctx context.Context, key, action string) error {
	allowed, err := g.limiter.Allow(ctx, key, action, g.policy.Limit, g.policy.Window)
	if err != nil {
		g.metrics.RecordStorageError("rate_limit")
		return ErrServer.Wrap(fmt.Errorf("rate limit %s: %w", action, err))
	}
	g.metrics.RecordRateLimit(action, allowed)
	if !allowed {
		return ErrRateLimited
	}
	return nil
}
