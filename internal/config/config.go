package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	ClickHouse ClickHouseConfig `yaml:"clickhouse" envconfig:"CLICKHOUSE"`
	Export     ExportConfig     `yaml:"export" envconfig:"EXPORT"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ClickHouseConfig describes the database the query runs against
type ClickHouseConfig struct {
	URI          string        `yaml:"uri" split_words:"true" validate:"required,dburi"`
	User         string        `yaml:"user" split_words:"true"`
	Password     string        `yaml:"password" split_words:"true"`
	QueryTimeout time.Duration `yaml:"query_timeout" split_words:"true" validate:"gte=0"`
	DialTimeout  time.Duration `yaml:"dial_timeout" split_words:"true" validate:"gte=0"`
}

// ExportConfig describes the query and the workbooks it is written to
type ExportConfig struct {
	Query          string `yaml:"query" split_words:"true"`
	OutputFilename string `yaml:"output_filename" split_words:"true" validate:"required"`
	// SplitRows of zero or less writes everything to one file
	SplitRows      int    `yaml:"split_rows" split_words:"true"`
	DatetimeFormat string `yaml:"datetime_format" split_words:"true" validate:"required"`
	SheetName      string `yaml:"sheet_name" split_words:"true" validate:"required,max=31"`
	ProgressEvery  int    `yaml:"progress_every" split_words:"true" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" split_words:"true" validate:"oneof=json text"`
	Output   string `yaml:"output" split_words:"true" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" split_words:"true" validate:"required_unless=Output console"`
}

// TelemetryConfig controls the optional status endpoint and tracing
type TelemetryConfig struct {
	// MetricsAddr enables /metrics, /status and /health when set
	MetricsAddr   string `yaml:"metrics_addr" split_words:"true" validate:"omitempty,hostname_port"`
	TraceExporter string `yaml:"trace_exporter" split_words:"true" validate:"oneof=none stdout"`
	ServiceName   string `yaml:"service_name" split_words:"true" validate:"required"`
}

// Overrides holds values set explicitly on the command line. Nil fields
// leave the loaded configuration untouched.
type Overrides struct {
	URI            *string
	User           *string
	Password       *string
	Query          *string
	OutputFilename *string
	SplitRows      *int
	DatetimeFormat *string
	SheetName      *string
	ProgressEvery  *int
	LogLevel       *string
	MetricsAddr    *string
	TraceExporter  *string
}

// Load builds the configuration from defaults, the YAML file, a .env file
// and CHXLSX_ environment variables, in increasing order of precedence.
// configPath may be empty, in which case CHXLSX_CONFIG and the usual
// locations are searched.
func Load(configPath string) (*Config, error) {
	return load(configPath, DefaultEnvFile)
}

func load(configPath, envFile string) (*Config, error) {
	cfg := Default()

	// .env never overrides variables already present in the environment
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	if configPath == "" {
		configPath = getConfigFilePath()
	}
	if configPath != "" {
		if err := loadFromFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys missing from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}

	locations := []string{
		"chxlsx.yaml",
		"configs/chxlsx.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// ApplyOverrides copies every set override into the configuration
func (c *Config) ApplyOverrides(o Overrides) {
	setString(&c.ClickHouse.URI, o.URI)
	setString(&c.ClickHouse.User, o.User)
	setString(&c.ClickHouse.Password, o.Password)
	setString(&c.Export.Query, o.Query)
	setString(&c.Export.OutputFilename, o.OutputFilename)
	setInt(&c.Export.SplitRows, o.SplitRows)
	setString(&c.Export.DatetimeFormat, o.DatetimeFormat)
	setString(&c.Export.SheetName, o.SheetName)
	setInt(&c.Export.ProgressEvery, o.ProgressEvery)
	setString(&c.Logging.Level, o.LogLevel)
	setString(&c.Telemetry.MetricsAddr, o.MetricsAddr)
	setString(&c.Telemetry.TraceExporter, o.TraceExporter)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks the configuration. An empty query is not an error here:
// the command reports it before anything else happens.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("dburi", validateDBURI); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s' validation", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// validateDBURI accepts scheme://host[:port][/database] for the supported schemes
func validateDBURI(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil || u.Hostname() == "" {
		return false
	}
	for _, scheme := range SupportedSchemes {
		if strings.EqualFold(u.Scheme, scheme) {
			return true
		}
	}
	return false
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		ClickHouse: ClickHouseConfig{
			URI:          DefaultURI,
			User:         DefaultUser,
			QueryTimeout: DefaultQueryTimeout,
			DialTimeout:  DefaultDialTimeout,
		},
		Export: ExportConfig{
			OutputFilename: DefaultOutputFilename,
			SplitRows:      DefaultSplitRows,
			DatetimeFormat: DefaultDatetimeFormat,
			SheetName:      DefaultSheetName,
			ProgressEvery:  DefaultProgressEvery,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/chxlsx.log",
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
			ServiceName:   AppName,
		},
	}
}
