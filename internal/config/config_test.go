package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:8123/default", cfg.ClickHouse.URI)
	assert.Equal(t, "default", cfg.ClickHouse.User)
	assert.Equal(t, "", cfg.ClickHouse.Password)
	assert.Equal(t, 2*time.Hour, cfg.ClickHouse.QueryTimeout)
	assert.Equal(t, 30*time.Second, cfg.ClickHouse.DialTimeout)

	assert.Equal(t, "", cfg.Export.Query)
	assert.Equal(t, "export", cfg.Export.OutputFilename)
	assert.Equal(t, 400000, cfg.Export.SplitRows)
	assert.Equal(t, "dd/mm/yyyy hh:mm:ss", cfg.Export.DatetimeFormat)
	assert.Equal(t, "export", cfg.Export.SheetName)
	assert.Equal(t, 1000, cfg.Export.ProgressEvery)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "console", cfg.Logging.Output)

	assert.Equal(t, "", cfg.Telemetry.MetricsAddr)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
	assert.Equal(t, AppName, cfg.Telemetry.ServiceName)

	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		yaml        string
		dotenv      string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults only",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "yaml overlays defaults",
			yaml: `
clickhouse:
  uri: https://ch.example.com:8443/analytics
  query_timeout: 30m
export:
  output_filename: out/daily
  split_rows: 1000
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://ch.example.com:8443/analytics", cfg.ClickHouse.URI)
				assert.Equal(t, 30*time.Minute, cfg.ClickHouse.QueryTimeout)
				assert.Equal(t, "out/daily", cfg.Export.OutputFilename)
				assert.Equal(t, 1000, cfg.Export.SplitRows)
				assert.Equal(t, "default", cfg.ClickHouse.User, "keys absent from the file keep defaults")
				assert.Equal(t, "dd/mm/yyyy hh:mm:ss", cfg.Export.DatetimeFormat)
			},
		},
		{
			name: "environment beats yaml",
			yaml: `
export:
  split_rows: 1000
  sheet_name: from_file
`,
			env: map[string]string{
				"CHXLSX_EXPORT_SPLIT_ROWS":       "50",
				"CHXLSX_CLICKHOUSE_USER":         "reader",
				"CHXLSX_CLICKHOUSE_DIAL_TIMEOUT": "5s",
				"CHXLSX_LOGGING_LEVEL":           "debug",
				"CHXLSX_TELEMETRY_METRICS_ADDR":  ":9090",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 50, cfg.Export.SplitRows)
				assert.Equal(t, "from_file", cfg.Export.SheetName)
				assert.Equal(t, "reader", cfg.ClickHouse.User)
				assert.Equal(t, 5*time.Second, cfg.ClickHouse.DialTimeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, ":9090", cfg.Telemetry.MetricsAddr)
			},
		},
		{
			name:   "dotenv feeds the environment",
			dotenv: "CHXLSX_EXPORT_QUERY=SELECT 1\nCHXLSX_CLICKHOUSE_PASSWORD=from-dotenv\n",
			env: map[string]string{
				"CHXLSX_CLICKHOUSE_PASSWORD": "from-env",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "SELECT 1", cfg.Export.Query)
				assert.Equal(t, "from-env", cfg.ClickHouse.Password, "real environment wins over .env")
			},
		},
		{
			name: "unprefixed variables are ignored",
			env: map[string]string{
				"USER":     "someone",
				"PASSWORD": "nope",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "default", cfg.ClickHouse.User)
				assert.Equal(t, "", cfg.ClickHouse.Password)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var configPath, envFile string
			if tt.yaml != "" {
				configPath = writeFile(t, dir, "chxlsx.yaml", tt.yaml)
			}
			if tt.dotenv != "" {
				envFile = writeFile(t, dir, ".env", tt.dotenv)
				t.Cleanup(func() {
					os.Unsetenv("CHXLSX_EXPORT_QUERY")
				})
			}

			cfg, err := load(configPath, envFile)
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", "export:\n  sheet_name: custom\n")
	t.Setenv("CHXLSX_CONFIG", path)

	cfg, err := load("", "")
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Export.SheetName)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{
			name: "malformed yaml",
			yaml: "export: [unclosed",
		},
		{
			name: "unknown yaml key",
			yaml: "export:\n  split_rowz: 10\n",
		},
		{
			name: "bad duration in env",
			env:  map[string]string{"CHXLSX_CLICKHOUSE_QUERY_TIMEOUT": "forever"},
		},
		{
			name: "bad integer in env",
			env:  map[string]string{"CHXLSX_EXPORT_SPLIT_ROWS": "many"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			var configPath string
			if tt.yaml != "" {
				configPath = writeFile(t, t.TempDir(), "bad.yaml", tt.yaml)
			}

			_, err := load(configPath, "")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:   "native protocol uri",
			modify: func(c *Config) { c.ClickHouse.URI = "clickhouse://db01:9000/logs" },
		},
		{
			name:   "postgres uri",
			modify: func(c *Config) { c.ClickHouse.URI = "postgresql://pg.local/warehouse" },
		},
		{
			name:   "non positive split rows disables rotation",
			modify: func(c *Config) { c.Export.SplitRows = 0 },
		},
		{
			name:    "unsupported scheme",
			modify:  func(c *Config) { c.ClickHouse.URI = "mysql://localhost/db" },
			wantErr: "ClickHouse.URI",
		},
		{
			name:    "uri without host",
			modify:  func(c *Config) { c.ClickHouse.URI = "http:///default" },
			wantErr: "dburi",
		},
		{
			name:    "empty uri",
			modify:  func(c *Config) { c.ClickHouse.URI = "" },
			wantErr: "required",
		},
		{
			name:    "empty output filename",
			modify:  func(c *Config) { c.Export.OutputFilename = "" },
			wantErr: "OutputFilename",
		},
		{
			name:    "empty datetime format",
			modify:  func(c *Config) { c.Export.DatetimeFormat = "" },
			wantErr: "DatetimeFormat",
		},
		{
			name:    "sheet name too long",
			modify:  func(c *Config) { c.Export.SheetName = "a_sheet_name_longer_than_31_chars" },
			wantErr: "SheetName",
		},
		{
			name:    "negative progress interval",
			modify:  func(c *Config) { c.Export.ProgressEvery = -1 },
			wantErr: "ProgressEvery",
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "Level",
		},
		{
			name: "file output needs a path",
			modify: func(c *Config) {
				c.Logging.Output = "file"
				c.Logging.FilePath = ""
			},
			wantErr: "FilePath",
		},
		{
			name:    "bad metrics address",
			modify:  func(c *Config) { c.Telemetry.MetricsAddr = "not an address" },
			wantErr: "MetricsAddr",
		},
		{
			name:   "metrics address without host",
			modify: func(c *Config) { c.Telemetry.MetricsAddr = ":9090" },
		},
		{
			name:    "unknown trace exporter",
			modify:  func(c *Config) { c.Telemetry.TraceExporter = "jaeger" },
			wantErr: "TraceExporter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ClickHouse.User = "from-env"

	uri := "https://ch.example.com/analytics"
	query := "SELECT * FROM events"
	split := 0
	level := "debug"

	cfg.ApplyOverrides(Overrides{
		URI:       &uri,
		Query:     &query,
		SplitRows: &split,
		LogLevel:  &level,
	})

	assert.Equal(t, uri, cfg.ClickHouse.URI)
	assert.Equal(t, query, cfg.Export.Query)
	assert.Equal(t, 0, cfg.Export.SplitRows, "explicit zero is applied")
	assert.Equal(t, "debug", cfg.Logging.Level)

	assert.Equal(t, "from-env", cfg.ClickHouse.User, "unset overrides keep loaded values")
	assert.Equal(t, "export", cfg.Export.OutputFilename)
	assert.Equal(t, 1000, cfg.Export.ProgressEvery)
}
