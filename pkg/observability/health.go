package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Probe checks a single dependency.
type Probe func(ctx context.Context) DependencyStatus

// Dependency is a named probe. A failing critical dependency makes the
// service unhealthy; a failing optional one only degrades it.
type Dependency struct {
	Name     string
	Critical bool
	Probe    Probe
}

// HealthChecker aggregates dependency probes for the readiness endpoint.
type HealthChecker struct {
	version      string
	dependencies []Dependency
	timeout      time.Duration
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHealthChecker creates a health checker over deps.
func NewHealthChecker(version string, deps ...Dependency) *HealthChecker {
	return &HealthChecker{
		version:      version,
		dependencies: deps,
		timeout:      5 * time.Second,
	}
}

// PostgresDependency probes db with a ping and a trivial query. Postgres
// holds accounts, so it is always critical.
func PostgresDependency(db *sql.DB) Dependency {
	return Dependency{Name: "postgres", Critical: true, Probe: func(ctx context.Context) DependencyStatus {
		start := time.Now()
		if err := db.PingContext(ctx); err != nil {
			return unhealthy(start, err.Error())
		}
		var one int
		if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
			return unhealthy(start, "query failed: "+err.Error())
		}
		status := healthy(start)
		if stats := db.Stats(); stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
			status.Status = StatusDegraded
			status.Message = "connection pool exhausted"
		}
		return status
	}}
}

// RedisDependency probes client with PING.
func RedisDependency(client *redis.Client) Dependency {
	return Dependency{Name: "redis", Probe: func(ctx context.Context) DependencyStatus {
		start := time.Now()
		if err := client.Ping(ctx).Err(); err != nil {
			return unhealthy(start, err.Error())
		}
		return healthy(start)
	}}
}

func healthy(start time.Time) DependencyStatus {
	return DependencyStatus{Status: StatusHealthy, LatencyMS: time.Since(start).Milliseconds(), Timestamp: time.Now()}
}

func unhealthy(start time.Time, msg string) DependencyStatus {
	return DependencyStatus{Status: StatusUnhealthy, Message: msg, LatencyMS: time.Since(start).Milliseconds(), Timestamp: time.Now()}
}

// Check runs every probe concurrently and folds the results.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(h.dependencies)),
	}

	results := make([]DependencyStatus, len(h.dependencies))
	var wg sync.WaitGroup
	for i, dep := range h.dependencies {
		wg.Add(1)
		go func(i int, dep Dependency) {
			defer wg.Done()
			results[i] = dep.Probe(ctx)
		}(i, dep)
	}
	wg.Wait()

	for i, dep := range h.dependencies {
		result := results[i]
		status.Dependencies[dep.Name] = result
		switch {
		case result.Status == StatusUnhealthy && dep.Critical:
			status.Status = StatusUnhealthy
		case result.Status != StatusHealthy && status.Status == StatusHealthy:
			status.Status = StatusDegraded
		}
	}
	return status
}

// Liveness always reports healthy while the process serves requests.
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthStatus{Status: StatusHealthy, Timestamp: time.Now(), Version: h.version})
}

// Readiness returns 503 when a critical dependency is down, 200 otherwise.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

func writeHealth(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
