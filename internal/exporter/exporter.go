package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"chxlsx/internal/cells"
	apperrors "chxlsx/internal/errors"
	"chxlsx/pkg/contracts/domain"
)

// Cursor is an open, forward-only query result. Columns are known before
// the first row is read.
type Cursor interface {
	Columns() []string
	Next() bool
	Values() ([]interface{}, error)
	Err() error
	Close() error
}

// Options configures one export run
type Options struct {
	// BaseName is the output path without the .xlsx extension
	BaseName string
	// SplitRows is the number of data rows per file. Zero or less disables rotation.
	SplitRows int
}

// Summary describes a finished run
type Summary struct {
	Columns       []string             `json:"columns"`
	Rows          int64                `json:"rows"`
	Segments      []domain.SegmentInfo `json:"segments"`
	FallbackCells int64                `json:"fallback_cells"`
	Duration      time.Duration        `json:"duration"`
}

// Exporter streams a cursor into rotated workbooks
type Exporter struct {
	factory  WorkbookFactory
	logger   *slog.Logger
	progress *Progress
	tracer   *ExportTracer
}

// Option configures an Exporter
type Option func(*Exporter)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// WithProgress attaches a progress reporter
func WithProgress(p *Progress) Option {
	return func(e *Exporter) {
		e.progress = p
	}
}

// WithTracer attaches spans and metrics
func WithTracer(t *ExportTracer) Option {
	return func(e *Exporter) {
		e.tracer = t
	}
}

// New creates an exporter writing files through factory
func New(factory WorkbookFactory, opts ...Option) *Exporter {
	e := &Exporter{
		factory: factory,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "exporter"))
	return e
}

// Run reads the cursor to completion, writing one row at a time. The cursor
// is not closed. On error the open segment is discarded and the segments
// already closed stay on disk; the returned summary lists them.
func (e *Exporter) Run(ctx context.Context, cursor Cursor, opts Options) (summary *Summary, err error) {
	start := time.Now()
	names := cursor.Columns()
	summary = &Summary{Columns: names}

	if len(names) == 0 {
		return summary, apperrors.NewExportError("query returned no columns", nil)
	}

	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.StartRun(ctx, opts.BaseName, opts.SplitRows, len(names))
		defer func() {
			e.tracer.EndRun(ctx, span, summary.Rows, time.Since(start), err)
		}()
	}

	e.logger.InfoContext(ctx, "Starting export",
		slog.String("base_name", opts.BaseName),
		slog.Int("split_rows", opts.SplitRows),
		slog.Int("columns", len(names)))

	header := domain.HeaderRow(domain.ColumnsFromNames(names))
	rotator := NewRotator(opts.BaseName, opts.SplitRows, header, e.factory, e.observers()...)
	rotator.SetLogger(e.logger)

	defer func() {
		summary.Rows = rotator.TotalRows()
		summary.Segments = rotator.Segments()
		summary.Duration = time.Since(start)
	}()

	if err := rotator.Start(); err != nil {
		return summary, apperrors.NewStorageError("failed to open first segment", err)
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			e.abort(ctx, rotator)
			return summary, apperrors.NewExportError("export interrupted", ctxErr).
				WithContext("rows", rotator.TotalRows())
		}
		if !cursor.Next() {
			break
		}

		values, err := cursor.Values()
		if err != nil {
			e.abort(ctx, rotator)
			return summary, apperrors.NewExportError(
				fmt.Sprintf("failed to read row %d", rotator.TotalRows()+1), err)
		}
		if len(values) != len(names) {
			e.abort(ctx, rotator)
			return summary, apperrors.NewExportError(
				fmt.Sprintf("row %d has %d values, expected %d", rotator.TotalRows()+1, len(values), len(names)), nil)
		}

		row := cells.MapRow(values)
		if err := rotator.WriteRow(row); err != nil {
			e.abort(ctx, rotator)
			return summary, apperrors.NewStorageError("failed to write row", err)
		}

		summary.FallbackCells += countFallback(row)
		if e.tracer != nil {
			e.tracer.RecordRow(ctx, row)
		}
		if e.progress != nil {
			e.progress.RowWritten(rotator.TotalRows())
		}
	}

	if err := cursor.Err(); err != nil {
		e.abort(ctx, rotator)
		return summary, apperrors.NewExportError("failed while reading query results", err)
	}

	if err := rotator.Finish(); err != nil {
		return summary, apperrors.NewStorageError("failed to finalize last segment", err)
	}

	if e.progress != nil {
		e.progress.Done()
	}

	e.logger.InfoContext(ctx, "Export completed",
		slog.Int64("rows", rotator.TotalRows()),
		slog.Int("segments", len(rotator.Segments())),
		slog.Int64("fallback_cells", summary.FallbackCells),
		slog.String("rows_per_second", formatRate(rotator.TotalRows(), time.Since(start).Seconds())))

	return summary, nil
}

// abort discards the open segment after a failed run. The run error is
// what the caller sees, so a discard failure is only logged.
func (e *Exporter) abort(ctx context.Context, rotator *Rotator) {
	if err := rotator.Abort(); err != nil {
		e.logger.WarnContext(ctx, "Failed to discard unfinished segment",
			slog.String("path", rotator.Current().Path),
			slog.String("error", err.Error()))
	}
}

func (e *Exporter) observers() []SegmentObserver {
	var out []SegmentObserver
	if e.progress != nil {
		out = append(out, e.progress)
	}
	if e.tracer != nil {
		out = append(out, e.tracer)
	}
	return out
}

func countFallback(row domain.Row) int64 {
	var n int64
	for _, cell := range row {
		if cell.Kind == domain.KindOther {
			n++
		}
	}
	return n
}
