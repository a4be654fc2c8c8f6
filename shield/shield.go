// Package shield provides the HTTP middleware in front of the scrape API:
// security headers, body limits, request tracing, bearer-token checks,
// per-endpoint rate limiting and HEAD handling.
//
// Usage:
//
//	r := chi.NewRouter()
//	stack, rl := shield.DefaultStack(db)
//	rl.StartReloader(ctx)
//	for _, mw := range stack {
//	    r.Use(mw)
//	}
package shield

import (
	"database/sql"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultStack returns the standard middleware stack for the API server,
// ordered HeadToGet → SecurityHeaders → MaxBody → TraceID → RateLimiter.
// The rate limiter reads its rules from db; /health is never limited.
func DefaultStack(db *sql.DB) ([]func(http.Handler) http.Handler, *RateLimiter) {
	rl := NewRateLimiter(db, "/health")
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(64 * 1024),
		TraceID,
		rl.Middleware,
	}, rl
}
