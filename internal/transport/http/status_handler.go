package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	apperrors "chxlsx/internal/errors"
	"chxlsx/internal/exporter"
	"chxlsx/internal/infrastructure"
)

// ProgressSource supplies the export counters
type ProgressSource interface {
	Snapshot() exporter.ProgressSnapshot
}

// RuntimeSource supplies process statistics
type RuntimeSource interface {
	Current(ctx context.Context) infrastructure.RuntimeStats
}

// StatusResponse is the body of GET /status
type StatusResponse struct {
	RunID     string                       `json:"run_id"`
	StartedAt time.Time                    `json:"started_at"`
	Progress  exporter.ProgressSnapshot    `json:"progress"`
	Runtime   *infrastructure.RuntimeStats `json:"runtime,omitempty"`
}

// StatusHandler handles status and health requests
type StatusHandler struct {
	runID     string
	startedAt time.Time
	progress  ProgressSource
	runtime   RuntimeSource
	logger    *slog.Logger
}

// NewStatusHandler creates a new status handler. runtime may be nil.
func NewStatusHandler(runID string, progress ProgressSource, runtime RuntimeSource, logger *slog.Logger) *StatusHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusHandler{
		runID:     runID,
		startedAt: time.Now().UTC(),
		progress:  progress,
		runtime:   runtime,
		logger:    logger.With(slog.String("handler", "status")),
	}
}

// Health handles GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// Status handles GET /status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.progress == nil {
		h.logger.WarnContext(r.Context(), "Status requested without a progress source")
		apperrors.WriteError(w, r, apperrors.ErrServiceUnavailable)
		return
	}

	resp := StatusResponse{
		RunID:     h.runID,
		StartedAt: h.startedAt,
		Progress:  h.progress.Snapshot(),
	}
	if h.runtime != nil {
		stats := h.runtime.Current(r.Context())
		resp.Runtime = &stats
	}

	render.JSON(w, r, resp)
}
