package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/platinummonkey/campusauth/pkg/auth"
	"github.com/platinummonkey/campusauth/pkg/observability"
	"github.com/platinummonkey/campusauth/pkg/storage"
)

// EnvProduction is the PORTAL_ENV value that forbids an ephemeral secret.
const EnvProduction = "production"

// Config holds all application configuration
type Config struct {
	// Environment name, e.g. development or production
	Env string

	Server        ServerConfig
	Storage       storage.Config
	Auth          AuthConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// Honour X-Forwarded-For when deriving the rate-limit key
	TrustProxy bool
	// Largest accepted request body
	MaxBodyBytes int64
}

// AuthConfig holds token, password and login policy settings
type AuthConfig struct {
	Secret     []byte
	Issuer     string
	TokenTTL   time.Duration
	BcryptCost int

	LoginLimit  int
	LoginWindow time.Duration

	// Cron spec for the revocation and counter janitor
	PruneSchedule string

	// Set when Secret was generated at startup because none was configured
	EphemeralSecret bool

	// Account created at startup when missing
	Bootstrap BootstrapAccount
}

// BootstrapAccount seeds one account so a fresh deployment, in particular
// the in-memory one, has someone who can log in. Disabled when Username is
// empty.
type BootstrapAccount struct {
	Username string
	Password string
	Role     string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
}

// LoadConfig loads configuration from an optional .env file and the
// environment.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(getEnv("PORTAL_ENV_FILE", ".env"))

	cfg := &Config{
		Env:           strings.ToLower(getEnv("PORTAL_ENV", "development")),
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if len(cfg.Auth.Secret) == 0 {
		secret, err := ephemeralSecret()
		if err != nil {
			return nil, err
		}
		cfg.Auth.Secret = secret
		cfg.Auth.EphemeralSecret = true
	}

	return cfg, nil
}

// IsProduction reports whether PORTAL_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("PORTAL_HOST", "0.0.0.0"),
		Port:            getEnv("PORTAL_PORT", "8080"),
		ReadTimeout:     getEnvDuration("PORTAL_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("PORTAL_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("PORTAL_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("PORTAL_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("PORTAL_HEALTH_PORT", "9090"),
		TrustProxy:      getEnvBool("PORTAL_TRUST_PROXY", false),
		MaxBodyBytes:    getEnvInt64("PORTAL_MAX_BODY_BYTES", 1<<20),
	}
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if v := getEnv("PORTAL_STORE", ""); v != "" {
		cfg.AccountBackend = strings.ToLower(v)
	}
	if v := getEnv("PORTAL_LIMITER", ""); v != "" {
		cfg.LimiterBackend = strings.ToLower(v)
	}
	if v := getEnv("PORTAL_REVOCATION", ""); v != "" {
		cfg.RevocationBackend = strings.ToLower(v)
	}

	// PostgreSQL config
	cfg.PostgresURL = getEnv("PORTAL_POSTGRES_URL", cfg.PostgresURL)
	if maxConns := getEnvInt("PORTAL_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("PORTAL_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("PORTAL_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	// Redis config
	cfg.RedisURL = getEnv("PORTAL_REDIS_URL", cfg.RedisURL)
	cfg.RedisPassword = getEnv("PORTAL_REDIS_PASSWORD", cfg.RedisPassword)
	if redisDB := getEnvInt("PORTAL_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if retries := getEnvInt("PORTAL_REDIS_MAX_RETRIES", 0); retries > 0 {
		cfg.RedisMaxRetries = retries
	}
	if poolSize := getEnvInt("PORTAL_REDIS_POOL_SIZE", 0); poolSize > 0 {
		cfg.RedisPoolSize = poolSize
	}
	cfg.RedisKeyPrefix = getEnv("PORTAL_REDIS_KEY_PREFIX", cfg.RedisKeyPrefix)

	// Revocation cache; size 0 disables it
	cfg.RevocationCacheSize = getEnvInt("PORTAL_REVOCATION_CACHE_SIZE", cfg.RevocationCacheSize)
	cfg.RevocationCacheTTL = getEnvDuration("PORTAL_REVOCATION_CACHE_TTL", cfg.RevocationCacheTTL)

	return cfg
}

func loadAuthConfig() AuthConfig {
	cfg := AuthConfig{
		Issuer:        getEnv("PORTAL_JWT_ISSUER", auth.DefaultIssuer),
		TokenTTL:      getEnvDuration("PORTAL_TOKEN_TTL", auth.DefaultTokenTTL),
		BcryptCost:    getEnvInt("PORTAL_BCRYPT_COST", 10),
		LoginLimit:    getEnvInt("PORTAL_LOGIN_LIMIT", auth.DefaultLoginLimit),
		LoginWindow:   getEnvDuration("PORTAL_LOGIN_WINDOW", auth.DefaultLoginWindow),
		PruneSchedule: getEnv("PORTAL_PRUNE_SCHEDULE", "@every 10m"),
		Bootstrap: BootstrapAccount{
			Username: strings.TrimSpace(os.Getenv("PORTAL_BOOTSTRAP_USERNAME")),
			Password: os.Getenv("PORTAL_BOOTSTRAP_PASSWORD"),
			Role:     getEnv("PORTAL_BOOTSTRAP_ROLE", string(auth.RoleAdmin)),
		},
	}
	if secret := os.Getenv("PORTAL_JWT_SECRET"); secret != "" {
		cfg.Secret = []byte(secret)
	}
	return cfg
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("PORTAL_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("PORTAL_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("PORTAL_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("PORTAL_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("PORTAL_OTEL_SERVICE_NAME", "campus-portal-auth"),
		OTelServiceVersion: getEnv("PORTAL_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("PORTAL_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("PORTAL_OTEL_SAMPLE_RATIO", 1.0),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Server.HealthPort == "" {
		return errors.New("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return errors.New("server port and health port must be different")
	}

	if err := c.Storage.Validate(); err != nil {
		return err
	}

	if len(c.Auth.Secret) == 0 && c.IsProduction() {
		return errors.New("PORTAL_JWT_SECRET is required in production")
	}
	if len(c.Auth.Secret) > 0 && len(c.Auth.Secret) < auth.MinSecretLength {
		return fmt.Errorf("PORTAL_JWT_SECRET must be at least %d bytes", auth.MinSecretLength)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.Auth.LoginLimit <= 0 {
		return errors.New("login limit must be positive")
	}
	if c.Auth.LoginWindow <= 0 {
		return errors.New("login window must be positive")
	}
	if err := c.Auth.Bootstrap.Validate(); err != nil {
		return err
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return errors.New("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return errors.New("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// Validate checks the bootstrap account when one is configured.
func (b BootstrapAccount) Validate() error {
	if b.Username == "" {
		if b.Password != "" {
			return errors.New("PORTAL_BOOTSTRAP_PASSWORD is set without PORTAL_BOOTSTRAP_USERNAME")
		}
		return nil
	}
	if len(b.Password) < auth.MinPasswordLength || len(b.Password) > auth.MaxPasswordLength {
		return fmt.Errorf("PORTAL_BOOTSTRAP_PASSWORD must be %d to %d characters", auth.MinPasswordLength, auth.MaxPasswordLength)
	}
	if auth.Canonicalize(b.Role) == auth.RoleUnknown {
		return fmt.Errorf("invalid PORTAL_BOOTSTRAP_ROLE: %q", b.Role)
	}
	return nil
}

// TracingConfig returns the OTLP settings, with export disabled unless OTel
// is enabled.
func (c *Config) TracingConfig() observability.TracingConfig {
	o := c.Observability
	if !o.OTelEnabled {
		return observability.TracingConfig{}
	}
	return observability.TracingConfig{
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

// ephemeralSecret returns a random signing secret for non-production runs.
// Tokens signed with it do not survive a restart.
func ephemeralSecret() ([]byte, error) {
	secret := make([]byte, 2*auth.MinSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate signing secret: %w", err)
	}
	return secret, nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
