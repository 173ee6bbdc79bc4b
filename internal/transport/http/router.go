package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apperrors "chxlsx/internal/errors"
	"chxlsx/internal/middleware"
)

// RouterConfig holds the router dependencies
type RouterConfig struct {
	Status  *StatusHandler
	Metrics http.Handler // nil when metrics are disabled
	Logger  *slog.Logger
}

// NewRouter builds the status server routes.
// Middleware order: RequestID → RealIP → Logger → Recoverer.
func NewRouter(cfg RouterConfig) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperrors.WriteError(w, r, apperrors.NotFoundError(r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apperrors.WriteError(w, r, apperrors.ErrMethodNotAllowed)
	})

	if cfg.Status != nil {
		r.Get("/health", cfg.Status.Health)
		r.Get("/status", cfg.Status.Status)
	}

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	return r
}
