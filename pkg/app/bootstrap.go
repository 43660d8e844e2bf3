package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/campusauth/pkg/auth"
	"github.com/platinummonkey/campusauth/pkg/config"
	"github.com/platinummonkey/campusauth/pkg/observability"
)

// Bootstrap creates the configured bootstrap account unless an account with
// that username already exists. It reports whether an account was created.
// A zero BootstrapAccount is a no-op.
func Bootstrap(ctx context.Context, cfg config.AuthConfig, accounts auth.AccountStore, logger *observability.Logger) (bool, error) {
	seed := cfg.Bootstrap
	if seed.Username == "" {
		return false, nil
	}
	if err := seed.Validate(); err != nil {
		return false, err
	}

	username := strings.TrimSpace(seed.Username)
	log := logger.WithField("username", username)

	_, err := accounts.FindByUsername(ctx, username)
	if err == nil {
		log.Debug("bootstrap account already exists")
		return false, nil
	}
	if !errors.Is(err, auth.ErrAccountNotFound) {
		return false, fmt.Errorf("lookup bootstrap account: %w", err)
	}

	digest, err := auth.NewBcryptHasher(cfg.BcryptCost).Hash(seed.Password)
	if err != nil {
		return false, err
	}

	acct := &auth.Account{
		Username:     username,
		PasswordHash: digest,
		Role:         auth.Canonicalize(seed.Role),
		Status:       auth.StatusActive,
	}
	if err := accounts.Create(ctx, acct); err != nil {
		// Another instance won the race.
		if errors.Is(err, auth.ErrAccountExists) {
			return false, nil
		}
		return false, fmt.Errorf("create bootstrap account: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"user_id": acct.ID,
		"role":    acct.Role,
	}).Info("bootstrap account created")
	return true, nil
}
