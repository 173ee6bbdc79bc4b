package testutil

import (
	"context"
	"log/slog"
	"sync"
	"testing"
)

// LogRecord is a captured log record
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// recordStore is shared by a handler and the handlers derived from it
type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// BufferedSlogHandler captures log records for assertions. Attributes added
// with With are merged into each record; groups are ignored.
type BufferedSlogHandler struct {
	store *recordStore
	attrs []slog.Attr
	t     *testing.T
}

// NewBufferedSlogHandler creates a capturing handler. Records are echoed to
// t.Logf when t is not nil.
func NewBufferedSlogHandler(t *testing.T) *BufferedSlogHandler {
	return &BufferedSlogHandler{store: &recordStore{}, t: t}
}

// NewCapturingLogger returns a logger and the handler capturing its records
func NewCapturingLogger(t *testing.T) (*slog.Logger, *BufferedSlogHandler) {
	h := NewBufferedSlogHandler(t)
	return slog.New(h), h
}

// Enabled implements slog.Handler
func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler
func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.store.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler
func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &BufferedSlogHandler{store: h.store, attrs: merged, t: h.t}
}

// WithGroup implements slog.Handler
func (h *BufferedSlogHandler) WithGroup(string) slog.Handler {
	return h
}

// Records returns a copy of the captured records
func (h *BufferedSlogHandler) Records() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	out := make([]LogRecord, len(h.store.records))
	copy(out, h.store.records)
	return out
}

// Find returns the first record with the given message
func (h *BufferedSlogHandler) Find(msg string) (LogRecord, bool) {
	for _, r := range h.Records() {
		if r.Message == msg {
			return r, true
		}
	}
	return LogRecord{}, false
}

// Count returns how many records carry the given message
func (h *BufferedSlogHandler) Count(msg string) int {
	n := 0
	for _, r := range h.Records() {
		if r.Message == msg {
			n++
		}
	}
	return n
}
