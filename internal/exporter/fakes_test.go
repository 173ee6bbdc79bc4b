package exporter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"chxlsx/pkg/contracts/domain"
)

// memoryWorkbook keeps appended rows in memory
type memoryWorkbook struct {
	path      string
	rows      []domain.Row
	closed    bool
	discarded bool
	closeErr   error
	appendErr  error
	discardErr error
}

func (w *memoryWorkbook) AppendRow(row domain.Row) error {
	if w.closed || w.discarded {
		return fmt.Errorf("workbook %s is not open", w.path)
	}
	if w.appendErr != nil {
		return w.appendErr
	}
	w.rows = append(w.rows, row)
	return nil
}

func (w *memoryWorkbook) Close() error {
	if w.closed {
		return errors.New("closed twice")
	}
	w.closed = true
	return w.closeErr
}

func (w *memoryWorkbook) Discard() error {
	w.discarded = true
	return w.discardErr
}

// texts returns the cell texts of every row
func (w *memoryWorkbook) texts() [][]string {
	out := make([][]string, 0, len(w.rows))
	for _, row := range w.rows {
		line := make([]string, len(row))
		for i, c := range row {
			line[i] = c.Text
		}
		out = append(out, line)
	}
	return out
}

// memoryFactory records every workbook it creates
type memoryFactory struct {
	mu        sync.Mutex
	workbooks []*memoryWorkbook
	createErr map[string]error
	// appendErrAt makes the workbook created at this position fail every append
	appendErrAt int
	appendErr   error
	discardErr  error
}

func newMemoryFactory() *memoryFactory {
	return &memoryFactory{appendErrAt: -1}
}

func (f *memoryFactory) Create(path string) (SheetWriter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.createErr[path]; err != nil {
		return nil, err
	}
	wb := &memoryWorkbook{path: path, discardErr: f.discardErr}
	if len(f.workbooks) == f.appendErrAt {
		wb.appendErr = f.appendErr
	}
	f.workbooks = append(f.workbooks, wb)
	return wb, nil
}

func (f *memoryFactory) paths() []string {
	out := make([]string, len(f.workbooks))
	for i, wb := range f.workbooks {
		out[i] = wb.path
	}
	return out
}

// sliceCursor serves rows from memory
type sliceCursor struct {
	columns []string
	rows    [][]interface{}
	pos     int
	err     error
	failAt  int
	closed  bool
	onNext  func(pos int)
}

func newSliceCursor(columns []string, rows ...[]interface{}) *sliceCursor {
	return &sliceCursor{columns: columns, rows: rows, failAt: -1}
}

func (c *sliceCursor) Columns() []string { return c.columns }

func (c *sliceCursor) Next() bool {
	if c.onNext != nil {
		c.onNext(c.pos)
	}
	if c.failAt >= 0 && c.pos == c.failAt {
		c.err = errors.New("connection reset by peer")
		return false
	}
	if c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Values() ([]interface{}, error) {
	return c.rows[c.pos-1], nil
}

func (c *sliceCursor) Err() error { return c.err }

func (c *sliceCursor) Close() error {
	c.closed = true
	return nil
}

// recordingObserver keeps segment events in order
type recordingObserver struct {
	events []string
}

func (o *recordingObserver) SegmentOpened(seg domain.SegmentInfo) {
	o.events = append(o.events, fmt.Sprintf("open %d %s", seg.Index, seg.Path))
}

func (o *recordingObserver) SegmentClosed(seg domain.SegmentInfo) {
	o.events = append(o.events, fmt.Sprintf("close %d %s %d", seg.Index, seg.Path, seg.RowsWritten))
}

// MockSheetWriter implements SheetWriter with testify/mock
type MockSheetWriter struct {
	mock.Mock
}

func (m *MockSheetWriter) AppendRow(row domain.Row) error {
	args := m.Called(row)
	return args.Error(0)
}

func (m *MockSheetWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSheetWriter) Discard() error {
	args := m.Called()
	return args.Error(0)
}

// MockWorkbookFactory implements WorkbookFactory with testify/mock
type MockWorkbookFactory struct {
	mock.Mock
}

func (m *MockWorkbookFactory) Create(path string) (SheetWriter, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(SheetWriter), args.Error(1)
}
