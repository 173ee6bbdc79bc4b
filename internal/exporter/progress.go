package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"chxlsx/pkg/contracts/domain"
)

// progressLogInterval bounds how often progress is written to the log
const progressLogInterval = 10 * time.Second

// Progress reports export progress on the console and in the log.
//
// Console output:
//
//	\nWriting File: export.xlsx
//	...1000...2000
//	...done
//
// The counters may be read from other goroutines through Snapshot.
type Progress struct {
	out       io.Writer
	every     int64
	logger    *slog.Logger
	sometimes *rate.Sometimes
	startedAt time.Time

	rows           atomic.Int64
	currentSegment atomic.Int64
	closedSegments atomic.Int64
	currentPath    atomic.Value
}

// ProgressSnapshot is a point-in-time view of an export
type ProgressSnapshot struct {
	RowsProcessed  int64   `json:"rows_processed"`
	CurrentSegment int64   `json:"current_segment"`
	CurrentFile    string  `json:"current_file"`
	SegmentsClosed int64   `json:"segments_closed"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	RowsPerSecond  float64 `json:"rows_per_second"`
}

// NewProgress creates a progress reporter printing a marker every `every`
// rows to out. every <= 0 disables the row markers.
func NewProgress(out io.Writer, every int, logger *slog.Logger) *Progress {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Progress{
		out:       out,
		every:     int64(every),
		logger:    logger.With(slog.String("component", "progress")),
		sometimes: &rate.Sometimes{Interval: progressLogInterval},
		startedAt: time.Now(),
	}
	p.currentPath.Store("")
	return p
}

// SegmentOpened implements SegmentObserver
func (p *Progress) SegmentOpened(seg domain.SegmentInfo) {
	p.currentSegment.Store(int64(seg.Index))
	p.currentPath.Store(seg.Path)
	fmt.Fprintf(p.out, "\nWriting File: %s\n", seg.Path)
}

// SegmentClosed implements SegmentObserver
func (p *Progress) SegmentClosed(seg domain.SegmentInfo) {
	p.closedSegments.Add(1)
}

// RowWritten records that processed rows have been written in total
func (p *Progress) RowWritten(processed int64) {
	p.rows.Store(processed)
	if p.every > 0 && processed%p.every == 0 {
		fmt.Fprintf(p.out, "...%d", processed)
	}
	p.sometimes.Do(func() {
		elapsed := time.Since(p.startedAt).Seconds()
		p.logger.Info("Export progress",
			slog.Int64("rows_processed", processed),
			slog.Int64("segment", p.currentSegment.Load()),
			slog.String("rows_per_second", formatRate(processed, elapsed)))
	})
}

// Done prints the completion marker
func (p *Progress) Done() {
	fmt.Fprintln(p.out, "...done")
}

// Snapshot returns the current counters
func (p *Progress) Snapshot() ProgressSnapshot {
	rows := p.rows.Load()
	elapsed := time.Since(p.startedAt).Seconds()
	var rps float64
	if elapsed > 0 {
		rps = float64(rows) / elapsed
	}
	path, _ := p.currentPath.Load().(string)
	return ProgressSnapshot{
		RowsProcessed:  rows,
		CurrentSegment: p.currentSegment.Load(),
		CurrentFile:    path,
		SegmentsClosed: p.closedSegments.Load(),
		ElapsedSeconds: elapsed,
		RowsPerSecond:  rps,
	}
}
