package storage

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted in Config.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config for storage backends
type Config struct {
	// Backend per concern: accounts are memory or postgres; the limiter and
	// revocation registry may also use redis.
	AccountBackend    string
	LimiterBackend    string
	RevocationBackend string

	// PostgreSQL config
	PostgresURL         string
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration
	PostgresMaxLifetime time.Duration
	PostgresMaxIdleTime time.Duration

	// Redis config
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
	RedisKeyPrefix  string

	// Local positive-hit cache in front of the revocation registry
	RevocationCacheSize int
	RevocationCacheTTL  time.Duration
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		AccountBackend:      BackendMemory,
		LimiterBackend:      BackendMemory,
		RevocationBackend:   BackendMemory,
		PostgresMaxConns:    20,
		PostgresMinConns:    2,
		PostgresTimeout:     5 * time.Second,
		PostgresMaxLifetime: 30 * time.Minute,
		PostgresMaxIdleTime: 5 * time.Minute,
		RedisDB:             0,
		RedisMaxRetries:     3,
		RedisPoolSize:       10,
		RedisKeyPrefix:      "portal",
		RevocationCacheSize: 10000,
		RevocationCacheTTL:  5 * time.Minute,
	}
}

// NeedsPostgres reports whether any concern is configured for postgres.
func (c Config) NeedsPostgres() bool {
	return c.AccountBackend == BackendPostgres ||
		c.LimiterBackend == BackendPostgres ||
		c.RevocationBackend == BackendPostgres
}

// NeedsRedis reports whether any concern is configured for redis.
func (c Config) NeedsRedis() bool {
	return c.LimiterBackend == BackendRedis || c.RevocationBackend == BackendRedis
}

// Validate checks backend names and required connection settings.
func (c Config) Validate() error {
	switch c.AccountBackend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("invalid account backend: %q (must be memory or postgres)", c.AccountBackend)
	}
	for name, b := range map[string]string{"limiter": c.LimiterBackend, "revocation": c.RevocationBackend} {
		switch b {
		case BackendMemory, BackendPostgres, BackendRedis:
		default:
			return fmt.Errorf("invalid %s backend: %q (must be memory, postgres or redis)", name, b)
		}
	}
	if c.NeedsPostgres() && c.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required for postgres-backed storage")
	}
	if c.NeedsRedis() && c.RedisURL == "" {
		return fmt.Errorf("redis URL is required for redis-backed storage")
	}
	return nil
}

// Pruner is implemented by stores that hold expiring rows.
type Pruner interface {
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// LimitResetter clears the counter of one (key, action) pair.
type LimitResetter interface {
	Reset(ctx context.Context, key, action string) error
}
