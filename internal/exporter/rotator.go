package exporter

import (
	"fmt"
	"log/slog"
	"time"

	"chxlsx/pkg/contracts/domain"
)

// SheetWriter is one open output file
type SheetWriter interface {
	AppendRow(row domain.Row) error
	// Close finalizes the file. Only a closed file is guaranteed readable.
	Close() error
	// Discard releases the file without finalizing it.
	Discard() error
}

// WorkbookFactory opens output files
type WorkbookFactory interface {
	Create(path string) (SheetWriter, error)
}

// SegmentObserver is notified when segments open and close
type SegmentObserver interface {
	SegmentOpened(seg domain.SegmentInfo)
	SegmentClosed(seg domain.SegmentInfo)
}

// Segment is one physical output file. It is a value: the rotator replaces
// its current segment instead of mutating a shared one.
type Segment struct {
	Index       int
	Path        string
	RowsWritten int
	State       domain.SegmentState
	OpenedAt    time.Time
	ClosedAt    time.Time
	writer      SheetWriter
}

// Info returns the segment summary
func (s Segment) Info() domain.SegmentInfo {
	return domain.SegmentInfo{
		Index:       s.Index,
		Path:        s.Path,
		RowsWritten: s.RowsWritten,
		State:       s.State,
		OpenedAt:    s.OpenedAt,
		ClosedAt:    s.ClosedAt,
	}
}

func (s Segment) withRow() Segment {
	s.RowsWritten++
	return s
}

func (s Segment) closed(at time.Time) Segment {
	s.State = domain.SegmentClosed
	s.ClosedAt = at
	s.writer = nil
	return s
}

// Rotator splits a row stream into segments of at most threshold data rows.
// Every segment starts with the header row. A threshold of zero or less
// means a single segment.
type Rotator struct {
	baseName  string
	threshold int
	header    domain.Row
	factory   WorkbookFactory
	observers []SegmentObserver
	logger    *slog.Logger

	current   Segment
	started   bool
	totalRows int64
	finished  []domain.SegmentInfo
}

// NewRotator creates a rotator writing <baseName>.xlsx, <baseName>_1.xlsx, ...
func NewRotator(baseName string, threshold int, header domain.Row, factory WorkbookFactory, observers ...SegmentObserver) *Rotator {
	return &Rotator{
		baseName:  baseName,
		threshold: threshold,
		header:    header,
		factory:   factory,
		observers: observers,
		logger:    slog.Default().With(slog.String("component", "rotator")),
	}
}

// SetLogger replaces the logger segment events are written to
func (r *Rotator) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

// Start opens segment 0 and writes its header
func (r *Rotator) Start() error {
	if r.started {
		return fmt.Errorf("rotator already started")
	}
	seg, err := r.buildNewSegment(0)
	if err != nil {
		return err
	}
	r.current = seg
	r.started = true
	return nil
}

// WriteRow appends one data row, opening the next segment first when the
// previous one reached the threshold, and closing the current segment when
// this row fills it.
func (r *Rotator) WriteRow(row domain.Row) error {
	if !r.started {
		return fmt.Errorf("rotator not started")
	}

	if r.current.State == domain.SegmentClosed {
		seg, err := r.buildNewSegment(SegmentIndex(r.totalRows, r.threshold))
		if err != nil {
			return err
		}
		r.current = seg
	}

	if err := r.current.writer.AppendRow(row); err != nil {
		return fmt.Errorf("failed to append row %d to %s: %w", r.totalRows+1, r.current.Path, err)
	}
	r.current = r.current.withRow()
	r.totalRows++

	if r.threshold > 0 && r.current.RowsWritten >= r.threshold {
		return r.closeCurrent()
	}
	return nil
}

// Finish closes the open segment, if any. A segment already closed by the
// threshold is not closed again.
func (r *Rotator) Finish() error {
	if !r.started || r.current.State == domain.SegmentClosed {
		return nil
	}
	return r.closeCurrent()
}

// Abort discards the open segment without finalizing it. Segments closed
// earlier stay on disk.
func (r *Rotator) Abort() error {
	if !r.started || r.current.State == domain.SegmentClosed {
		return nil
	}
	err := r.current.writer.Discard()
	r.logger.Warn("Discarded unfinished segment",
		slog.String("path", r.current.Path),
		slog.Int("rows_written", r.current.RowsWritten))
	r.current = r.current.closed(time.Now())
	return err
}

// TotalRows returns the number of data rows written across all segments
func (r *Rotator) TotalRows() int64 {
	return r.totalRows
}

// Current returns the current segment
func (r *Rotator) Current() Segment {
	return r.current
}

// Segments returns the finalized segments in order
func (r *Rotator) Segments() []domain.SegmentInfo {
	out := make([]domain.SegmentInfo, len(r.finished))
	copy(out, r.finished)
	return out
}

// buildNewSegment creates the file for segment index and writes the header.
// It is the only place segments are constructed.
func (r *Rotator) buildNewSegment(index int) (Segment, error) {
	path := SegmentPath(r.baseName, index)

	writer, err := r.factory.Create(path)
	if err != nil {
		return Segment{}, fmt.Errorf("failed to create segment %s: %w", path, err)
	}
	if err := writer.AppendRow(r.header); err != nil {
		_ = writer.Discard()
		return Segment{}, fmt.Errorf("failed to write header to %s: %w", path, err)
	}

	seg := Segment{
		Index:    index,
		Path:     path,
		State:    domain.SegmentOpen,
		OpenedAt: time.Now(),
		writer:   writer,
	}

	r.logger.Info("Opened segment",
		slog.Int("index", index),
		slog.String("path", path),
		slog.Int64("rows_before", r.totalRows))

	for _, o := range r.observers {
		o.SegmentOpened(seg.Info())
	}
	return seg, nil
}

func (r *Rotator) closeCurrent() error {
	if err := r.current.writer.Close(); err != nil {
		r.current = r.current.closed(time.Now())
		return fmt.Errorf("failed to finalize segment %s: %w", r.current.Path, err)
	}
	r.current = r.current.closed(time.Now())

	info := r.current.Info()
	r.finished = append(r.finished, info)

	r.logger.Info("Closed segment",
		slog.Int("index", info.Index),
		slog.String("path", info.Path),
		slog.Int("rows_written", info.RowsWritten))

	for _, o := range r.observers {
		o.SegmentClosed(info)
	}
	return nil
}
