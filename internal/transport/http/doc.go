// Package http serves the optional status endpoint of a running export.
//
// The server is started only when a metrics address is configured and
// lives exactly as long as the export:
//
//	GET /health   liveness, always {"status":"ok"}
//	GET /status   run id plus a progress and runtime snapshot
//	GET /metrics  Prometheus exposition of the OpenTelemetry meters
//
// Handlers are thin. They read from the progress reporter and the runtime
// collector and render JSON with chi/render; errors use the APIError shape
// from internal/errors.
package http
