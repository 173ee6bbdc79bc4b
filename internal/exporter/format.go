package exporter

import (
	"fmt"
	"strings"
)

// xlsxExt is appended to every segment file name
const xlsxExt = ".xlsx"

// SegmentPath returns the file path of segment index for the given base name.
// Segment 0 is unsuffixed; later segments get "_<index>".
func SegmentPath(baseName string, index int) string {
	base := strings.TrimSuffix(baseName, xlsxExt)
	if index == 0 {
		return base + xlsxExt
	}
	return fmt.Sprintf("%s_%d%s", base, index, xlsxExt)
}

// SegmentIndex returns the index of the segment that the next row belongs to
// after rowsWritten rows. A threshold of zero or less never rotates.
func SegmentIndex(rowsWritten int64, threshold int) int {
	if threshold <= 0 {
		return 0
	}
	return int(rowsWritten / int64(threshold))
}

// formatRate formats a rows-per-second figure for logs
func formatRate(rows int64, seconds float64) string {
	if seconds <= 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(rows)/seconds)
}
