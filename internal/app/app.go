package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"chxlsx/internal/config"
	apperrors "chxlsx/internal/errors"
	"chxlsx/internal/exporter"
	"chxlsx/internal/infrastructure"
	"chxlsx/internal/source"
	handlers "chxlsx/internal/transport/http"
)

const (
	// runtimeInterval is how often process metrics are sampled while the
	// status endpoint is up
	runtimeInterval = 15 * time.Second
	shutdownTimeout = 10 * time.Second
	runtimeMeter    = "chxlsx.runtime"
)

// QuerySource runs the export query
type QuerySource interface {
	Query(ctx context.Context, query string) (exporter.Cursor, error)
	Close() error
}

// SourceOpener connects to the configured database
type SourceOpener func(ctx context.Context, opts source.Options) (QuerySource, error)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Progress      *exporter.Progress
	Exporter      *exporter.Exporter
	Runtime       *infrastructure.RuntimeCollector // nil unless the status endpoint is enabled

	stdout     io.Writer
	openSource SourceOpener
}

// Option configures an Application
type Option func(*Application)

// WithLogger uses logger instead of initializing the process logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) {
		a.Logger = logger
	}
}

// WithStdout redirects the console progress output
func WithStdout(w io.Writer) Option {
	return func(a *Application) {
		a.stdout = w
	}
}

// WithSourceOpener replaces the database connection
func WithSourceOpener(open SourceOpener) Option {
	return func(a *Application) {
		a.openSource = open
	}
}

// NewApplication wires the components for one export. cfg must already be
// validated.
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	a := &Application{
		Config:     cfg,
		stdout:     os.Stdout,
		openSource: openDatabase,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.Logger == nil {
		logger, err := infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, apperrors.NewConfigError("failed to initialize logger", err)
		}
		a.Logger = logger
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), a.Logger)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to initialize telemetry", err)
	}
	a.OTelProviders = providers

	tracer, err := exporter.NewExportTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to create export tracer: %w", err)
	}

	a.Progress = exporter.NewProgress(a.stdout, cfg.Export.ProgressEvery, a.Logger)
	a.Exporter = exporter.New(
		exporter.NewXLSXFactory(cfg.Export.SheetName, cfg.Export.DatetimeFormat),
		exporter.WithLogger(a.Logger),
		exporter.WithProgress(a.Progress),
		exporter.WithTracer(tracer),
	)

	if cfg.Telemetry.MetricsAddr != "" {
		collector, err := infrastructure.NewRuntimeCollector(otel.Meter(runtimeMeter), runtimeInterval)
		if err != nil {
			return nil, fmt.Errorf("failed to create runtime collector: %w", err)
		}
		a.Runtime = collector
	}

	return a, nil
}

// Run connects, executes the query and exports its result. When a metrics
// address is configured the status server runs alongside the export and
// stops with it. The returned summary is non-nil once the export started,
// including on failure.
func (a *Application) Run(ctx context.Context) (*exporter.Summary, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	runID := infrastructure.GetTraceID(ctx)
	cfg := a.Config

	a.Logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", infrastructure.ServiceVersion),
		slog.String("output", cfg.Export.OutputFilename),
		slog.Int("split_rows", cfg.Export.SplitRows))

	// Bind first so a busy port fails the run before any file is written
	var ln net.Listener
	if cfg.Telemetry.MetricsAddr != "" {
		var err error
		ln, err = net.Listen("tcp", cfg.Telemetry.MetricsAddr)
		if err != nil {
			return nil, apperrors.NewConfigError("failed to bind status endpoint", err).
				WithContext("addr", cfg.Telemetry.MetricsAddr)
		}
	}
	serving := false
	defer func() {
		if ln != nil && !serving {
			ln.Close()
		}
	}()

	src, err := a.openSource(ctx, source.Options{
		URI:          cfg.ClickHouse.URI,
		User:         cfg.ClickHouse.User,
		Password:     cfg.ClickHouse.Password,
		DialTimeout:  cfg.ClickHouse.DialTimeout,
		QueryTimeout: cfg.ClickHouse.QueryTimeout,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			a.Logger.WarnContext(ctx, "Failed to close database connection", slog.String("error", err.Error()))
		}
	}()

	cursor, err := src.Query(ctx, cfg.Export.Query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cursor.Close(); err != nil {
			a.Logger.WarnContext(ctx, "Failed to close result cursor", slog.String("error", err.Error()))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()

	var summary *exporter.Summary
	g.Go(func() error {
		defer stopServing()
		var err error
		summary, err = a.Exporter.Run(gctx, cursor, exporter.Options{
			BaseName:  cfg.Export.OutputFilename,
			SplitRows: cfg.Export.SplitRows,
		})
		return err
	})

	if ln != nil {
		serving = true
		srv := handlers.NewServer(ln.Addr().String(), a.statusRouter(runID), a.Logger)
		g.Go(func() error {
			return srv.Serve(serveCtx, ln)
		})
		if a.Runtime != nil {
			g.Go(func() error {
				a.Runtime.Run(serveCtx)
				return nil
			})
		}
	}

	err = g.Wait()
	a.logSummary(ctx, summary, err)
	return summary, err
}

// statusRouter builds the status endpoint routes for this run
func (a *Application) statusRouter(runID string) http.Handler {
	var runtime handlers.RuntimeSource
	if a.Runtime != nil {
		runtime = a.Runtime
	}
	return handlers.NewRouter(handlers.RouterConfig{
		Status:  handlers.NewStatusHandler(runID, a.Progress, runtime, a.Logger),
		Metrics: a.OTelProviders.PrometheusHTTP,
		Logger:  a.Logger,
	})
}

func (a *Application) logSummary(ctx context.Context, summary *exporter.Summary, err error) {
	if summary == nil {
		return
	}

	files := make([]string, 0, len(summary.Segments))
	for _, seg := range summary.Segments {
		files = append(files, seg.Path)
	}

	attrs := []any{
		slog.Int64("rows", summary.Rows),
		slog.Int("columns", len(summary.Columns)),
		slog.Any("files", files),
		slog.Int64("fallback_cells", summary.FallbackCells),
		slog.String("duration", summary.Duration.String()),
	}
	if err != nil {
		a.Logger.ErrorContext(ctx, "Export failed",
			append(attrs,
				slog.String("error", err.Error()),
				slog.String("error_type", string(apperrors.TypeOf(err))))...)
		return
	}
	a.Logger.InfoContext(ctx, "Export summary", attrs...)
}

// Close flushes telemetry and closes the log file
func (a *Application) Close(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var err error
	if a.OTelProviders != nil {
		if err = a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.DebugContext(ctx, "Application shutdown complete")
	infrastructure.CloseLogFile()
	return err
}

// databaseSource adapts source.Source to QuerySource
type databaseSource struct {
	src *source.Source
}

func openDatabase(ctx context.Context, opts source.Options) (QuerySource, error) {
	src, err := source.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &databaseSource{src: src}, nil
}

func (d *databaseSource) Query(ctx context.Context, query string) (exporter.Cursor, error) {
	cursor, err := d.src.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

func (d *databaseSource) Close() error {
	return d.src.Close()
}
