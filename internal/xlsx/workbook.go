package xlsx

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"chxlsx/pkg/contracts/domain"
)

// defaultSheetName is the sheet every new excelize file starts with
const defaultSheetName = "Sheet1"

// Writer creates single-sheet workbooks sharing one sheet name and one
// date-time format
type Writer struct {
	sheetName  string
	dateFormat string
}

// NewWriter creates a workbook writer
func NewWriter(sheetName, dateFormat string) *Writer {
	return &Writer{
		sheetName:  sheetName,
		dateFormat: dateFormat,
	}
}

// Workbook is one open output file. Rows are streamed to disk-backed
// buffers; the file at path only exists once Close succeeds.
type Workbook struct {
	file    *excelize.File
	stream  *excelize.StreamWriter
	styles  *StyleCatalog
	path    string
	nextRow int
	columns int
	closed  bool
}

// Create opens a new workbook destined for path, with its own style table
func (w *Writer) Create(path string) (*Workbook, error) {
	slog.Debug("Creating workbook",
		slog.String("path", path),
		slog.String("sheet", w.sheetName))

	f := excelize.NewFile()

	if w.sheetName != defaultSheetName {
		if err := f.SetSheetName(defaultSheetName, w.sheetName); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to name sheet %q: %w", w.sheetName, err)
		}
	}

	styles, err := NewStyleCatalog(f, w.dateFormat)
	if err != nil {
		f.Close()
		return nil, err
	}

	stream, err := f.NewStreamWriter(w.sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create stream writer: %w", err)
	}

	return &Workbook{
		file:    f,
		stream:  stream,
		styles:  styles,
		path:    path,
		nextRow: 1,
	}, nil
}

// Path returns the destination file path
func (b *Workbook) Path() string {
	return b.path
}

// Styles returns the workbook's style table
func (b *Workbook) Styles() *StyleCatalog {
	return b.styles
}

// AppendRow writes the next row of the sheet
func (b *Workbook) AppendRow(row domain.Row) error {
	if b.closed {
		return fmt.Errorf("workbook %s is closed", b.path)
	}

	values := make([]interface{}, len(row))
	for i, cell := range row {
		values[i] = b.toExcelCell(cell)
	}

	ref, err := excelize.CoordinatesToCellName(1, b.nextRow)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", b.nextRow, err)
	}
	if err := b.stream.SetRow(ref, values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", b.nextRow, err)
	}

	if len(row) > b.columns {
		b.columns = len(row)
	}
	b.nextRow++
	return nil
}

// RowsWritten returns the number of sheet rows written so far, header included
func (b *Workbook) RowsWritten() int {
	return b.nextRow - 1
}

// Close flushes the sheet and saves the workbook to its path
func (b *Workbook) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	defer b.file.Close()

	if err := b.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if dir := filepath.Dir(b.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := b.file.SaveAs(b.path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", b.path, err)
	}

	slog.Debug("Workbook saved",
		slog.String("path", b.path),
		slog.Int("rows", b.RowsWritten()),
		slog.Int("columns", b.columns))

	return nil
}

// Discard releases the workbook without writing it to disk
func (b *Workbook) Discard() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.file.Close()
}

func (b *Workbook) toExcelCell(cell domain.Cell) excelize.Cell {
	value := cell.Value
	if cell.Type == domain.CellTypeText && value == nil {
		value = cell.Text
	}
	return excelize.Cell{
		StyleID: b.styles.StyleFor(cell),
		Value:   value,
	}
}
