package xlsx

import (
	"archive/zip"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"chxlsx/internal/cells"
	"chxlsx/pkg/contracts/domain"
)

const testDateFormat = "dd/mm/yyyy hh:mm:ss"

func writeWorkbook(t *testing.T, path string, rows ...domain.Row) {
	t.Helper()

	wb, err := NewWriter("export", testDateFormat).Create(path)
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, wb.AppendRow(row))
	}
	require.NoError(t, wb.Close())
}

func TestWriter_CreateAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	ts := time.Date(2024, time.May, 1, 10, 30, 15, 0, time.UTC)

	header := domain.HeaderRow(domain.ColumnsFromNames([]string{"id", "created", "name", "active"}))
	writeWorkbook(t, path,
		header,
		cells.MapRow([]interface{}{int64(10), ts, "alpha", true}),
		cells.MapRow([]interface{}{int64(20), ts, nil, false}),
	)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"export"}, f.GetSheetList())

	rows, err := f.GetRows("export")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "created", "name", "active"}, rows[0])
	assert.Equal(t, "10", rows[1][0])
	assert.Equal(t, "alpha", rows[1][2])
	assert.Equal(t, "20", rows[2][0])

	styleID, err := f.GetCellStyle("export", "B2")
	require.NoError(t, err)
	assert.Equal(t, domain.DateStyleID, styleID)

	styleID, err = f.GetCellStyle("export", "A2")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStyleID, styleID)

	raw, err := f.GetCellValue("export", "B2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	serial, err := strconv.ParseFloat(raw, 64)
	require.NoError(t, err)
	assert.InDelta(t, cells.DateSerial(ts), serial, 1e-6)

	cellType, err := f.GetCellType("export", "D2")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeBool, cellType)

	empty, err := f.GetCellValue("export", "C3")
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}

func TestStyleCatalog_DateFormat(t *testing.T) {
	formats := []string{testDateFormat, "yyyy-mm-dd", "yyyy-mm-dd hh:mm:ss.000"}

	for _, format := range formats {
		t.Run(format, func(t *testing.T) {
			f := excelize.NewFile()
			defer f.Close()

			catalog, err := NewStyleCatalog(f, format)
			require.NoError(t, err)
			assert.Equal(t, domain.DateStyleID, catalog.DateStyleID)
			assert.Equal(t, domain.DefaultStyleID, catalog.DefaultStyleID)
			assert.Equal(t, format, catalog.DateFormat)

			style, err := f.GetStyle(catalog.DateStyleID)
			require.NoError(t, err)
			require.NotNil(t, style.CustomNumFmt)
			assert.Equal(t, format, *style.CustomNumFmt)
		})
	}
}

func TestStyleCatalog_EmptyFormat(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	_, err := NewStyleCatalog(f, "")
	assert.Error(t, err)
}

func TestStyleCatalog_StyleFor(t *testing.T) {
	catalog := &StyleCatalog{DefaultStyleID: 0, DateStyleID: 1}

	assert.Equal(t, 1, catalog.StyleFor(cells.Map(time.Now())))
	assert.Equal(t, 0, catalog.StyleFor(cells.Map(int64(1))))
	assert.Equal(t, 0, catalog.StyleFor(cells.Map("x")))
	assert.Equal(t, 0, catalog.StyleFor(cells.Map(nil)))
}

func TestWorkbook_CustomNumFmtIDOutsideBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "styles.xlsx")
	writeWorkbook(t, path, domain.Row{domain.TextCell("h")})

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var stylesXML []byte
	for _, zf := range zr.File {
		if zf.Name != "xl/styles.xml" {
			continue
		}
		rc, err := zf.Open()
		require.NoError(t, err)
		stylesXML, err = io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
	}
	require.NotEmpty(t, stylesXML)

	m := regexp.MustCompile(`<numFmt numFmtId="(\d+)" formatCode="([^"]*)"`).FindSubmatch(stylesXML)
	require.NotNil(t, m, "styles.xml has no custom number format")
	id, err := strconv.Atoi(string(m[1]))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id, firstCustomNumFmtID)
	assert.Equal(t, testDateFormat, string(m[2]))
}

func TestWorkbook_EachFileHasOwnStyleTable(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter("export", testDateFormat)

	for _, name := range []string{"a.xlsx", "b.xlsx"} {
		wb, err := w.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, domain.DateStyleID, wb.Styles().DateStyleID)
		require.NoError(t, wb.AppendRow(cells.MapRow([]interface{}{time.Now()})))
		require.NoError(t, wb.Close())
	}

	for _, name := range []string{"a.xlsx", "b.xlsx"} {
		f, err := excelize.OpenFile(filepath.Join(dir, name))
		require.NoError(t, err)
		style, err := f.GetStyle(domain.DateStyleID)
		require.NoError(t, err)
		require.NotNil(t, style.CustomNumFmt)
		assert.Equal(t, testDateFormat, *style.CustomNumFmt)
		f.Close()
	}
}

func TestWriter_StoredNumericValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numeric.xlsx")
	old := time.Date(1850, time.June, 1, 12, 0, 0, 0, time.UTC)
	dec := decimal.RequireFromString("12345678901234567.89")
	wide, _ := new(big.Int).SetString("170141183460469231731687303715884105727", 10)

	row := cells.MapRow([]interface{}{old, dec, wide, big.NewInt(-7)})
	writeWorkbook(t, path, domain.Row{domain.TextCell("old"), domain.TextCell("dec"), domain.TextCell("wide"), domain.TextCell("small")}, row)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	tests := []struct {
		name   string
		cell   string
		stored string
	}{
		// dates before 1900 keep a numeric serial
		{name: "pre-1900 date", cell: "A2", stored: row[0].Text},
		// numbers are stored as doubles
		{name: "decimal", cell: "B2", stored: "12345678901234568"},
		{name: "int128", cell: "C2", stored: "170141183460469230000000000000000000000"},
		{name: "small big int", cell: "D2", stored: "-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := f.GetCellValue("export", tt.cell, excelize.Options{RawCellValue: true})
			require.NoError(t, err)
			assert.Equal(t, tt.stored, raw)
			_, err = strconv.ParseFloat(raw, 64)
			assert.NoError(t, err)
		})
	}

	assert.Equal(t, "12345678901234567.89", row[1].Text)
	assert.Equal(t, "170141183460469231731687303715884105727", row[2].Text)

	styleID, err := f.GetCellStyle("export", "A2")
	require.NoError(t, err)
	assert.Equal(t, domain.DateStyleID, styleID)
}

func TestWorkbook_Discard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discarded.xlsx")

	wb, err := NewWriter("export", testDateFormat).Create(path)
	require.NoError(t, err)
	require.NoError(t, wb.AppendRow(domain.Row{domain.TextCell("h")}))
	require.NoError(t, wb.Discard())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, wb.AppendRow(domain.Row{domain.TextCell("late")}))
	assert.NoError(t, wb.Close(), "closing a discarded workbook is a no-op")
}

func TestWorkbook_CloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.xlsx")

	wb, err := NewWriter("export", testDateFormat).Create(path)
	require.NoError(t, err)
	require.NoError(t, wb.AppendRow(domain.Row{domain.TextCell("h")}))
	assert.Equal(t, 1, wb.RowsWritten())
	require.NoError(t, wb.Close())
	require.NoError(t, wb.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWriter_CreatesMissingDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.xlsx")
	writeWorkbook(t, path, domain.Row{domain.TextCell("h")})

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestWriter_InvalidSheetName(t *testing.T) {
	_, err := NewWriter("bad[name]", testDateFormat).Create(filepath.Join(t.TempDir(), "x.xlsx"))
	assert.Error(t, err)
}
