package exporter

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"chxlsx/pkg/contracts/domain"
)

const (
	TracerName = "chxlsx.exporter"
	MeterName  = "chxlsx.exporter"
)

// ExportTracer provides spans and metrics for export runs. It uses the
// global providers, which are no-ops unless telemetry is initialized.
type ExportTracer struct {
	tracer trace.Tracer

	rowsExported    metric.Int64Counter
	segmentsWritten metric.Int64Counter
	fallbackCells   metric.Int64Counter
	runDuration     metric.Float64Histogram

	runCtx      context.Context
	segmentSpan trace.Span
}

// NewExportTracer creates the tracer and its instruments
func NewExportTracer() (*ExportTracer, error) {
	meter := otel.Meter(MeterName)

	rowsExported, err := meter.Int64Counter(
		"export_rows_total",
		metric.WithDescription("Total number of data rows written to workbooks"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rows counter: %w", err)
	}

	segmentsWritten, err := meter.Int64Counter(
		"export_segments_total",
		metric.WithDescription("Total number of workbook files finalized"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create segments counter: %w", err)
	}

	fallbackCells, err := meter.Int64Counter(
		"export_fallback_cells_total",
		metric.WithDescription("Cells of unrecognized kinds written as serialized text"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram(
		"export_run_duration_seconds",
		metric.WithDescription("Export run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &ExportTracer{
		tracer:          otel.Tracer(TracerName),
		rowsExported:    rowsExported,
		segmentsWritten: segmentsWritten,
		fallbackCells:   fallbackCells,
		runDuration:     runDuration,
		runCtx:          context.Background(),
	}, nil
}

// StartRun opens the span covering a whole export
func (t *ExportTracer) StartRun(ctx context.Context, baseName string, threshold int, columns int) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "export.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("export.base_name", baseName),
			attribute.Int("export.split_rows", threshold),
			attribute.Int("export.columns", columns),
		),
	)
	t.runCtx = ctx
	return ctx, span
}

// SegmentOpened implements SegmentObserver
func (t *ExportTracer) SegmentOpened(seg domain.SegmentInfo) {
	_, t.segmentSpan = t.tracer.Start(t.runCtx, "export.segment",
		trace.WithAttributes(
			attribute.Int("segment.index", seg.Index),
			attribute.String("segment.path", seg.Path),
		),
	)
}

// SegmentClosed implements SegmentObserver
func (t *ExportTracer) SegmentClosed(seg domain.SegmentInfo) {
	t.segmentsWritten.Add(t.runCtx, 1)
	if t.segmentSpan != nil {
		t.segmentSpan.SetAttributes(attribute.Int("segment.rows", seg.RowsWritten))
		t.segmentSpan.End()
		t.segmentSpan = nil
	}
}

// RecordRow counts one written row and its fallback cells
func (t *ExportTracer) RecordRow(ctx context.Context, row domain.Row) {
	t.rowsExported.Add(ctx, 1)
	for _, cell := range row {
		if cell.Kind == domain.KindOther {
			t.fallbackCells.Add(ctx, 1)
		}
	}
}

// EndRun records the outcome of a run and ends its span
func (t *ExportTracer) EndRun(ctx context.Context, span trace.Span, rows int64, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "export completed")
	}

	if t.segmentSpan != nil {
		t.segmentSpan.End()
		t.segmentSpan = nil
	}

	span.SetAttributes(
		attribute.Int64("export.rows", rows),
		attribute.String("export.status", status),
	)
	t.runDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("status", status)))
	span.End()
}
