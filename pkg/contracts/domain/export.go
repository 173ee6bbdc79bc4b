package domain

import (
	"time"
)

// Column describes one result column, taken once from the cursor schema
type Column struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// CellType is the display type a cell is written with
type CellType string

const (
	CellTypeNumber  CellType = "number"
	CellTypeText    CellType = "text"
	CellTypeBoolean CellType = "boolean"
	CellTypeDate    CellType = "date"
)

// ValueKind is the semantic category of a raw database value
type ValueKind string

const (
	KindNull     ValueKind = "null"
	KindInteger  ValueKind = "integer"
	KindDecimal  ValueKind = "decimal"
	KindFloat    ValueKind = "float"
	KindDateTime ValueKind = "datetime"
	KindBoolean  ValueKind = "boolean"
	KindString   ValueKind = "string"
	KindOther    ValueKind = "other"
)

// DefaultStyleID is the implicit style every workbook starts with.
const DefaultStyleID = 0

// DateStyleID is the style carrying the configured date-time number format.
const DateStyleID = 1

// Cell is a single typed spreadsheet cell.
//
// Text is the canonical textual form of the value. Value is what the
// spreadsheet writer stores (a Go number, bool, string or time.Time).
type Cell struct {
	Type    CellType    `json:"type"`
	Kind    ValueKind   `json:"kind"`
	Text    string      `json:"text"`
	Value   interface{} `json:"-"`
	StyleID int         `json:"style_id,omitempty"`
}

// Row is an ordered sequence of cells, one per column
type Row []Cell

// TextCell builds a plain text cell
func TextCell(s string) Cell {
	return Cell{
		Type:  CellTypeText,
		Kind:  KindString,
		Text:  s,
		Value: s,
	}
}

// HeaderRow builds the header row for the given columns
func HeaderRow(columns []Column) Row {
	row := make(Row, len(columns))
	for i, col := range columns {
		row[i] = TextCell(col.Name)
	}
	return row
}

// ColumnsFromNames converts schema column names into Columns
func ColumnsFromNames(names []string) []Column {
	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name, Position: i}
	}
	return columns
}

// SegmentState is the lifecycle state of an output segment
type SegmentState string

const (
	SegmentOpen   SegmentState = "open"
	SegmentClosed SegmentState = "closed"
)

// SegmentInfo summarizes one physical output file
type SegmentInfo struct {
	Index       int          `json:"index"`
	Path        string       `json:"path"`
	RowsWritten int          `json:"rows_written"`
	State       SegmentState `json:"state"`
	OpenedAt    time.Time    `json:"opened_at"`
	ClosedAt    time.Time    `json:"closed_at,omitempty"`
}
