package config

import "time"

// Application constants
const (
	AppName = "chxlsx"

	// EnvPrefix namespaces environment variables: CHXLSX_EXPORT_SPLIT_ROWS, ...
	EnvPrefix = "CHXLSX"

	// DefaultEnvFile is loaded into the environment when present
	DefaultEnvFile = ".env"
)

// Defaults
const (
	DefaultURI            = "http://localhost:8123/default"
	DefaultUser           = "default"
	DefaultOutputFilename = "export"
	DefaultSplitRows      = 400000
	DefaultDatetimeFormat = "dd/mm/yyyy hh:mm:ss"
	DefaultSheetName      = "export"
	DefaultProgressEvery  = 1000

	DefaultQueryTimeout = 120 * time.Minute
	DefaultDialTimeout  = 30 * time.Second
)

// SupportedSchemes lists the accepted database URI schemes
var SupportedSchemes = []string{"http", "https", "clickhouse", "tcp", "postgres", "postgresql"}
