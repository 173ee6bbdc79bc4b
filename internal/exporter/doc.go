// Package exporter streams query results into one or more XLSX workbooks.
//
// The package contains three main components:
//
// Rotator: splits the row stream into segments of at most SplitRows data
// rows. Segment 0 is written to <base>.xlsx and segment k to <base>_k.xlsx.
// Every segment starts with the same header row and carries its own style
// table.
//
// Exporter: pulls rows from a Cursor one at a time, maps every value to a
// typed cell and hands the row to the Rotator.
//
// Progress and ExportTracer: observe segment and row events for console
// output, logs, spans and metrics.
//
// Example usage:
//
//	exp := exporter.New(exporter.NewXLSXFactory("export", "dd/mm/yyyy hh:mm:ss"),
//		exporter.WithProgress(exporter.NewProgress(os.Stdout, 1000, logger)))
//
//	summary, err := exp.Run(ctx, cursor, exporter.Options{
//		BaseName:  "export",
//		SplitRows: 400000,
//	})
package exporter
