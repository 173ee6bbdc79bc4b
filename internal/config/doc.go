// Package config provides configuration management for chxlsx.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, lowest precedence
// first:
//
//	1. Default values (Default)
//	2. YAML file: --config, CHXLSX_CONFIG, ./chxlsx.yaml or ./configs/chxlsx.yaml
//	3. A .env file in the working directory (never replaces variables already set)
//	4. Environment variables with the CHXLSX_ prefix
//	5. Command line flags (ApplyOverrides)
//
// # Environment Variables
//
//	CHXLSX_CLICKHOUSE_URI=https://ch.example.com:8443/analytics
//	CHXLSX_CLICKHOUSE_USER=reader
//	CHXLSX_EXPORT_SPLIT_ROWS=100000
//	CHXLSX_EXPORT_DATETIME_FORMAT=yyyy-mm-dd hh:mm:ss
//	CHXLSX_LOGGING_LEVEL=debug
//	CHXLSX_TELEMETRY_METRICS_ADDR=:9090
//
// # Example file
//
//	clickhouse:
//	  uri: http://localhost:8123/default
//	  query_timeout: 2h
//	export:
//	  output_filename: out/daily
//	  split_rows: 400000
//	logging:
//	  level: info
package config
