// Package config loads portal configuration from the environment.
//
// # Overview
//
// LoadConfig reads an optional .env file (PORTAL_ENV_FILE, default ".env")
// and then PORTAL_* environment variables. Variables already present in the
// environment win over the file. Every setting has a default, so an empty
// environment yields an in-memory development server. Its account store
// starts empty; set PORTAL_BOOTSTRAP_USERNAME and PORTAL_BOOTSTRAP_PASSWORD
// to have an account created at startup.
//
// # Configuration Structure
//
// Server settings:
//
//	PORTAL_HOST="0.0.0.0"
//	PORTAL_PORT="8080"
//	PORTAL_HEALTH_PORT="9090"
//	PORTAL_TRUST_PROXY="false"  # honour X-Forwarded-For for rate-limit keys
//
// Auth settings:
//
//	PORTAL_ENV="production"
//	PORTAL_JWT_SECRET="..."     # >= 32 bytes; required in production
//	PORTAL_TOKEN_TTL="24h"
//	PORTAL_LOGIN_LIMIT="5"
//	PORTAL_LOGIN_WINDOW="1m"
//	PORTAL_PRUNE_SCHEDULE="@every 10m"
//	PORTAL_BOOTSTRAP_USERNAME="root"  # created at startup when missing
//	PORTAL_BOOTSTRAP_PASSWORD="..."   # 8 to 72 characters
//	PORTAL_BOOTSTRAP_ROLE="admin"
//
// Outside production a missing secret is replaced by a random one and
// AuthConfig.EphemeralSecret is set; tokens then die with the process.
//
// Storage settings:
//
//	PORTAL_STORE="postgres"       # memory, postgres
//	PORTAL_LIMITER="redis"        # memory, postgres, redis
//	PORTAL_REVOCATION="redis"     # memory, postgres, redis
//	PORTAL_POSTGRES_URL="postgres://localhost/portal?sslmode=disable"
//	PORTAL_REDIS_URL="redis://localhost:6379/0"
//	PORTAL_REVOCATION_CACHE_SIZE="10000"  # 0 disables the local cache
//
// Observability settings:
//
//	PORTAL_LOG_LEVEL="info"  # debug, info, warn, error
//	PORTAL_METRICS_ENABLED="true"
//	PORTAL_OTEL_ENABLED="true"
//	PORTAL_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Listening on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
package config
