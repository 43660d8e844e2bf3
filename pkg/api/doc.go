// Package api provides the HTTP API of the portal auth service.
//
// # Overview
//
// Server exposes login, logout and token verification on gorilla/mux, with
// request IDs, structured request logging, panic recovery and otelhttp
// tracing around every route:
//
//	POST /auth/login      {username, password, role?} -> {token, expires_at, user}
//	POST /auth/logout     Bearer token                -> {message}
//	GET  /auth/verify     Bearer token                -> {user}
//	POST /auth/password   Bearer token, {current_password, new_password}
//	GET  /auth/{admin,teacher,student}/ping           role-gated probes
//	GET  /health/live, /health/ready, /metrics
//
// Errors are written as {"error": code, "message": msg}. Unknown usernames
// and wrong passwords produce byte-identical invalid_credentials responses,
// and every token failure is a plain 401 unauthorized. A 429 carries
// Retry-After set to the login window.
//
// # Usage
//
//	server := api.NewServer(gateway, api.Options{
//		Logger:     logger,
//		Metrics:    metrics,
//		Health:     health,
//		Gatherer:   prometheus.DefaultGatherer,
//		TrustProxy: cfg.Server.TrustProxy,
//	})
//	http.ListenAndServe(":8080", server)
//
// Downstream handlers protect themselves with middleware.RequireAuth and
// middleware.RequireRole and read the caller from middleware.GetIdentity.
package api
