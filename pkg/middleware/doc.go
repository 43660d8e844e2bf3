// Package middleware provides HTTP middleware for bearer-token authentication
// and role-based authorization.
//
// # Middleware Components
//
// AuthMiddleware: Token authentication
//
//	router.Use(middleware.RequireAuth(gateway))
//	// Extracts the Bearer token, calls Authenticate, stores *auth.Identity
//
// RequireRole: Role gate, applied after RequireAuth
//
//	gate := httputil.Chain(middleware.RequireAuth(gateway), middleware.RequireRole(auth.RoleAdmin))
//	router.Handle("/admin/reports", gate(reports)).Methods(http.MethodGet)
//
// Roles are compared after canonicalization, so a "staff" token passes a
// teacher gate.
//
// Downstream handlers read the caller with middleware.GetIdentity(r) and must
// not re-derive identity from the request themselves.
package middleware
