package exporter

import (
	"chxlsx/internal/xlsx"
)

// xlsxFactory opens excelize-backed workbooks
type xlsxFactory struct {
	writer *xlsx.Writer
}

// NewXLSXFactory returns a factory creating single-sheet workbooks named
// sheetName, each with its own date style using dateFormat
func NewXLSXFactory(sheetName, dateFormat string) WorkbookFactory {
	return &xlsxFactory{writer: xlsx.NewWriter(sheetName, dateFormat)}
}

// Create implements WorkbookFactory
func (f *xlsxFactory) Create(path string) (SheetWriter, error) {
	wb, err := f.writer.Create(path)
	if err != nil {
		return nil, err
	}
	return wb, nil
}
