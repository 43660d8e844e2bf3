package app

import (
	"fmt"

	"github.com/platinummonkey/campusauth/pkg/auth"
	"github.com/platinummonkey/campusauth/pkg/config"
	"github.com/platinummonkey/campusauth/pkg/observability"
)

// NewGateway builds the auth gateway from cfg over the given stores.
func NewGateway(cfg config.AuthConfig, stores *Stores, logger *observability.Logger, metrics *observability.Metrics) (*auth.Gateway, error) {
	codec, err := auth.NewCodec(auth.CodecConfig{
		Secret: cfg.Secret,
		Issuer: cfg.Issuer,
		TTL:    cfg.TokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	return auth.NewGateway(auth.GatewayConfig{
		Accounts:    stores.Accounts,
		Hasher:      auth.NewBcryptHasher(cfg.BcryptCost),
		Codec:       codec,
		Limiter:     stores.Limiter,
		Revocations: stores.Revocations,
		Profiles:    stores.Profiles,
		Policy: auth.LoginPolicy{
			Limit:  cfg.LoginLimit,
			Window: cfg.LoginWindow,
		},
		Logger:  logger,
		Metrics: metrics,
	})
}
