// Package httputil provides the JSON response helpers, request parsing and
// generic HTTP middleware (request IDs, logging, panic recovery, body limits)
// shared by the API server.
//
// Error bodies always have the shape
//
//	{"error": "<code>", "message": "<client-safe text>"}
//
// and never include internal causes.
package httputil
