// Package middleware provides the HTTP middleware of the status server:
// request IDs that double as the logging trace_id, request logging, and
// panic recovery.
package middleware
