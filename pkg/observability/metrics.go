package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	LoginAttemptsTotal      *prometheus.CounterVec
	TokenVerificationsTotal *prometheus.CounterVec
	TokensRevokedTotal      prometheus.Counter
	RateLimitDecisionsTotal *prometheus.CounterVec
	PasswordHashDuration    prometheus.Histogram

	// Maintenance metrics
	PrunedEntriesTotal *prometheus.CounterVec
	PruneErrorsTotal   *prometheus.CounterVec

	// Storage metrics
	StorageErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with registerer
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		TokenVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_token_verifications_total",
				Help: "Token verifications by outcome",
			},
			[]string{"outcome"},
		),
		TokensRevokedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_tokens_revoked_total",
				Help: "Tokens revoked through logout",
			},
		),
		RateLimitDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_rate_limit_decisions_total",
				Help: "Rate limiter decisions by action and result",
			},
			[]string{"action", "decision"},
		),
		PasswordHashDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "portal_password_verify_duration_seconds",
				Help:    "Time spent verifying password digests",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1},
			},
		),
		PrunedEntriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_pruned_entries_total",
				Help: "Expired entries removed by the janitor",
			},
			[]string{"kind"},
		),
		PruneErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_prune_errors_total",
				Help: "Janitor runs that failed",
			},
			[]string{"kind"},
		),
		StorageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_storage_errors_total",
				Help: "Storage failures surfaced to the auth gateway",
			},
			[]string{"operation"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
			m.LoginAttemptsTotal,
			m.TokenVerificationsTotal,
			m.TokensRevokedTotal,
			m.RateLimitDecisionsTotal,
			m.PasswordHashDuration,
			m.PrunedEntriesTotal,
			m.PruneErrorsTotal,
			m.StorageErrorsTotal,
		)
	}

	return m
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLogin records a login outcome (an error code or "success")
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordVerification records a token verification outcome
func (m *Metrics) RecordVerification(outcome string) {
	if m == nil {
		return
	}
	m.TokenVerificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordRevocation counts a revoked token
func (m *Metrics) RecordRevocation() {
	if m == nil {
		return
	}
	m.TokensRevokedTotal.Inc()
}

// RecordRateLimit records a limiter decision
func (m *Metrics) RecordRateLimit(action string, allowed bool) {
	if m == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.RateLimitDecisionsTotal.WithLabelValues(action, decision).Inc()
}

// ObservePasswordVerify records how long a digest comparison took
func (m *Metrics) ObservePasswordVerify(d time.Duration) {
	if m == nil {
		return
	}
	m.PasswordHashDuration.Observe(d.Seconds())
}

// RecordPrune records a janitor run
func (m *Metrics) RecordPrune(kind string, removed int64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PruneErrorsTotal.WithLabelValues(kind).Inc()
		return
	}
	m.PrunedEntriesTotal.WithLabelValues(kind).Add(float64(removed))
}

// RecordStorageError counts a storage failure
func (m *Metrics) RecordStorageError(operation string) {
	if m == nil {
		return
	}
	m.StorageErrorsTotal.WithLabelValues(operation).Inc()
}

// MetricsHandler serves the metrics in gatherer
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
