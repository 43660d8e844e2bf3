package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/campusauth/pkg/auth"
	"github.com/platinummonkey/campusauth/pkg/httputil"
	"github.com/platinummonkey/campusauth/pkg/middleware"
	"github.com/platinummonkey/campusauth/pkg/observability"
)

// AuthService is the gateway surface the HTTP layer needs. *auth.Gateway
// implements it.
type AuthService interface {
	Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResult, error)
	Authenticate(ctx context.Context, token string) (*auth.Identity, error)
	Logout(ctx context.Context, token string) (*auth.Identity, error)
	ChangePassword(ctx context.Context, id *auth.Identity, current, next string) error
	Policy() auth.LoginPolicy
}

// Options configures a Server. Zero values are usable.
type Options struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Health  *observability.HealthChecker
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// TrustProxy derives the rate-limit source from X-Forwarded-For.
	TrustProxy   bool
	MaxBodyBytes int64
}

// Server is the portal auth HTTP API
type Server struct {
	router  *mux.Router
	handler http.Handler
	auth    AuthService
	opts    Options
}

// NewServer creates the API server and registers its routes.
func NewServer(svc AuthService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewNopLogger()
	}
	if opts.Health == nil {
		opts.Health = observability.NewHealthChecker("")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		router: mux.NewRouter(),
		auth:   svc,
		opts:   opts,
	}
	s.setupRoutes()
	s.handler = otelhttp.NewHandler(s.router, "portal-auth",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.opts.Logger, s.opts.Metrics),
		httputil.RecoveryMiddleware(s.opts.Logger),
	)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowed)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w)
	})

	// Registered on the root router with full paths so a method mismatch
	// reaches MethodNotAllowedHandler.
	body := httputil.Chain(httputil.MaxBytesMiddleware(s.opts.MaxBodyBytes), httputil.ContentTypeMiddleware)
	authed := httputil.Chain(body, middleware.RequireAuth(s.auth))

	s.router.Handle("/auth/login", body(http.HandlerFunc(s.login))).Methods(http.MethodPost)
	s.router.Handle("/auth/logout", body(http.HandlerFunc(s.logout))).Methods(http.MethodPost)
	s.router.Handle("/auth/verify", authed(http.HandlerFunc(s.verify))).Methods(http.MethodGet)
	s.router.Handle("/auth/password", authed(http.HandlerFunc(s.changePassword))).Methods(http.MethodPost)

	// Role-gated probes for downstream services checking their wiring.
	for _, role := range []auth.Role{auth.RoleAdmin, auth.RoleTeacher, auth.RoleStudent} {
		gate := httputil.Chain(authed, middleware.RequireRole(role))
		s.router.Handle("/auth/"+string(role)+"/ping", gate(http.HandlerFunc(s.ping))).Methods(http.MethodGet)
	}

	s.router.HandleFunc("/health/live", s.opts.Health.Liveness).Methods(http.MethodGet)
	s.router.HandleFunc("/health/ready", s.opts.Health.Readiness).Methods(http.MethodGet)
	if s.opts.Gatherer != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(s.opts.Gatherer)).Methods(http.MethodGet)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying router for extra routes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// methodNotAllowed answers 405 with the methods the path does accept.
func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	var allowed []string
	_ = s.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tmpl, err := route.GetPathTemplate()
		if err != nil || tmpl != r.URL.Path {
			return nil
		}
		methods, err := route.GetMethods()
		if err == nil {
			allowed = append(allowed, methods...)
		}
		return nil
	})
	httputil.WriteMethodNotAllowed(w, strings.Join(allowed, ", "))
}

// HealthHandler serves the probes and metrics on the separate health port.
func HealthHandler(health *observability.HealthChecker, gatherer prometheus.Gatherer) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health/live", health.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", health.Readiness).Methods(http.MethodGet)
	if gatherer != nil {
		router.Handle("/metrics", observability.MetricsHandler(gatherer)).Methods(http.MethodGet)
	}
	return router
}
