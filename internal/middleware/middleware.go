// Package middleware holds the echo middleware stack: request IDs,
// per-request loggers, New Relic tracing, request logging, panic recovery
// and the global error handler that renders errs.HTTPError.
package middleware
