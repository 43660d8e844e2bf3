// Package app assembles the configured storage backends and the auth gateway
// shared by the portal server and the admin CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/campusauth/pkg/auth"
	"github.com/platinummonkey/campusauth/pkg/observability"
	"github.com/platinummonkey/campusauth/pkg/storage"
	"github.com/platinummonkey/campusauth/pkg/storage/cache"
	"github.com/platinummonkey/campusauth/pkg/storage/memory"
	"github.com/platinummonkey/campusauth/pkg/storage/postgres"
	"github.com/platinummonkey/campusauth/pkg/storage/redisstore"
)

// Stores holds the backends selected by a storage.Config.
type Stores struct {
	Accounts    auth.AccountStore
	Limiter     auth.RateLimiter
	Revocations auth.RevocationRegistry
	Profiles    auth.ProfileProvider

	// Pruners maps a kind ("revocations", "rate_limits") to a store with
	// expiring rows.
	Pruners map[string]storage.Pruner

	DB    *sql.DB
	Redis *redis.Client
}

// OpenStores connects to the backends named in cfg. Postgres schema is
// created when missing. On error every connection opened so far is closed.
func OpenStores(ctx context.Context, cfg storage.Config, logger *observability.Logger) (_ *Stores, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Stores{Pruners: make(map[string]storage.Pruner)}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if cfg.NeedsPostgres() {
		s.DB, err = postgres.Open(ctx, postgres.ConnectionConfigFrom(cfg))
		if err != nil {
			return nil, err
		}
		if err = postgres.EnsureSchema(ctx, s.DB); err != nil {
			return nil, err
		}
		logger.Info("connected to postgres")
	}
	if cfg.NeedsRedis() {
		s.Redis, err = redisstore.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to redis")
	}

	switch cfg.AccountBackend {
	case storage.BackendPostgres:
		s.Accounts = postgres.NewAccountStore(s.DB)
		s.Profiles = postgres.NewProfileStore(s.DB)
	default:
		s.Accounts = memory.NewAccountStore()
	}

	switch cfg.LimiterBackend {
	case storage.BackendPostgres:
		limiter := postgres.NewRateLimiter(s.DB)
		s.Limiter = limiter
		s.Pruners["rate_limits"] = limiter
	case storage.BackendRedis:
		s.Limiter = redisstore.NewRateLimiter(s.Redis, cfg.RedisKeyPrefix)
	default:
		limiter := memory.NewRateLimiter()
		s.Limiter = limiter
		s.Pruners["rate_limits"] = limiter
	}

	var revocations auth.RevocationRegistry
	switch cfg.RevocationBackend {
	case storage.BackendPostgres:
		revocations = postgres.NewRevocationRegistry(s.DB)
	case storage.BackendRedis:
		revocations = redisstore.NewRevocationRegistry(s.Redis, cfg.RedisKeyPrefix)
	default:
		revocations = memory.NewRevocationRegistry()
	}
	if cfg.RevocationCacheSize > 0 && cfg.RevocationBackend != storage.BackendMemory {
		revocations = cache.NewRevocationCache(revocations, cfg.RevocationCacheSize, cfg.RevocationCacheTTL)
	}
	s.Revocations = revocations
	s.Pruners["revocations"] = revocations

	logger.WithFields(map[string]interface{}{
		"accounts":    cfg.AccountBackend,
		"limiter":     cfg.LimiterBackend,
		"revocations": cfg.RevocationBackend,
	}).Info("storage initialized")

	return s, nil
}

// Dependencies returns health probes for the remote backends in use.
func (s *Stores) Dependencies() []observability.Dependency {
	var deps []observability.Dependency
	if s.DB != nil {
		deps = append(deps, observability.PostgresDependency(s.DB))
	}
	if s.Redis != nil {
		deps = append(deps, observability.RedisDependency(s.Redis))
	}
	return deps
}

// Close releases remote connections.
func (s *Stores) Close() error {
	var errs []error
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	return errors.Join(errs...)
}
