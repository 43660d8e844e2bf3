// Package observability provides structured logging, Prometheus metrics,
// OTLP tracing, health checks and graceful shutdown for the portal services.
//
// # Structured Logging
//
// Logger wraps logrus with a JSON formatter:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", id).Info("login succeeded")
//
// Request handlers should log through the request-scoped logger, which
// carries request_id, user_id and, when tracing is on, trace_id:
//
//	log := observability.LoggerFrom(r.Context(), fallback)
//
// Bearer tokens are never logged verbatim; use RedactToken for a stable
// fingerprint.
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
//	metrics.RecordLogin("success")
//	router.Handle("/metrics", observability.MetricsHandler(prometheus.DefaultGatherer))
//
// A nil *Metrics is accepted everywhere and records nothing, which keeps
// tests free of registry bookkeeping.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version,
//		observability.PostgresDependency(db),
//		observability.RedisDependency(client),
//	)
//
// /health/ready returns 503 only when a critical dependency (Postgres) fails.
// Redis failures report "degraded".
//
// # Tracing
//
// InitTracing installs OTLP gRPC trace and meter providers when an endpoint
// is configured. Without one the global no-op providers stay in place.
//
// # Shutdown
//
// ShutdownManager drains HTTP servers, then runs registered shutdown
// functions concurrently under a single deadline.
package observability
