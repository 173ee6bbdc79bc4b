package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"chxlsx/internal/app"
	"chxlsx/internal/config"
	apperrors "chxlsx/internal/errors"
	"chxlsx/pkg/contracts"
)

// queryMissingMessage is printed when no query text is given
const queryMissingMessage = "--query parameter not defined"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit status
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return apperrors.ExitCode(err)
	}
	return apperrors.ExitOK
}

// cliFlags holds the raw flag values. Only flags the user set are applied
// over the loaded configuration.
type cliFlags struct {
	configPath     string
	uri            string
	user           string
	password       string
	query          string
	outputFilename string
	splitRows      int
	datetimeFormat string
	sheetName      string
	progressEvery  int
	logLevel       string
	metricsAddr    string
	traceExporter  string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags cliFlags
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Export a ClickHouse query result to XLSX workbooks",
		Long: `Run one SQL query against ClickHouse and write the result to Excel
workbooks, starting a new file every --split-rows data rows.

Files are named <output>.xlsx, <output>_1.xlsx, <output>_2.xlsx and so on.
Every file repeats the header row. Date-time values use --datetime-format.

Settings can also come from chxlsx.yaml, a .env file or CHXLSX_ environment
variables (for example CHXLSX_EXPORT_SPLIT_ROWS). Flags win over all of them.

Example:
  chxlsx --clickhouse-uri http://localhost:8123/default \
    --query "SELECT * FROM events" --output-filename events --split-rows 100000`,
		Version: contracts.GetVersionInfo().String(),
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return apperrors.NewConfigError("invalid arguments", err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, &flags, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return apperrors.NewConfigError("invalid arguments", err)
	})

	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "Path to a YAML configuration file")
	f.StringVar(&flags.uri, "clickhouse-uri", defaults.ClickHouse.URI, "Database URI: scheme://host:port/database")
	f.StringVar(&flags.user, "clickhouse-user", defaults.ClickHouse.User, "Database user")
	f.StringVar(&flags.password, "clickhouse-password", "", "Database password")
	f.StringVar(&flags.query, "query", "", "SQL query to export (required)")
	f.StringVar(&flags.outputFilename, "output-filename", defaults.Export.OutputFilename, "Output file name without the .xlsx extension")
	f.IntVar(&flags.splitRows, "split-rows", defaults.Export.SplitRows, "Data rows per file, 0 writes a single file")
	f.StringVar(&flags.datetimeFormat, "datetime-format", defaults.Export.DatetimeFormat, "Excel number format for date-time cells")
	f.StringVar(&flags.sheetName, "sheet-name", defaults.Export.SheetName, "Worksheet name")
	f.IntVar(&flags.progressEvery, "progress-every", defaults.Export.ProgressEvery, "Print a progress marker every N rows, 0 disables")
	f.StringVar(&flags.logLevel, "log-level", defaults.Logging.Level, "Log level: debug, info, warn, error")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve /metrics, /status and /health on this address during the export")
	f.StringVar(&flags.traceExporter, "trace-exporter", defaults.Telemetry.TraceExporter, "Trace exporter: none, stdout")

	return cmd
}

// overrides returns the flags explicitly set on the command line
func (c *cliFlags) overrides(fs *pflag.FlagSet) config.Overrides {
	var o config.Overrides
	str := func(name string, v *string, dst **string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	num := func(name string, v *int, dst **int) {
		if fs.Changed(name) {
			*dst = v
		}
	}

	str("clickhouse-uri", &c.uri, &o.URI)
	str("clickhouse-user", &c.user, &o.User)
	str("clickhouse-password", &c.password, &o.Password)
	str("query", &c.query, &o.Query)
	str("output-filename", &c.outputFilename, &o.OutputFilename)
	num("split-rows", &c.splitRows, &o.SplitRows)
	str("datetime-format", &c.datetimeFormat, &o.DatetimeFormat)
	str("sheet-name", &c.sheetName, &o.SheetName)
	num("progress-every", &c.progressEvery, &o.ProgressEvery)
	str("log-level", &c.logLevel, &o.LogLevel)
	str("metrics-addr", &c.metricsAddr, &o.MetricsAddr)
	str("trace-exporter", &c.traceExporter, &o.TraceExporter)
	return o
}

func runExport(cmd *cobra.Command, flags *cliFlags, stdout, stderr io.Writer) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return apperrors.NewConfigError("failed to load configuration", err)
	}
	cfg.ApplyOverrides(flags.overrides(cmd.Flags()))

	// Reported before anything connects; not treated as a failure
	if strings.TrimSpace(cfg.Export.Query) == "" {
		fmt.Fprintln(stderr, queryMissingMessage)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return apperrors.NewConfigError("invalid configuration", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(cfg, app.WithStdout(stdout))
	if err != nil {
		return err
	}
	defer application.Close(context.Background())

	_, err = application.Run(ctx)
	return err
}
