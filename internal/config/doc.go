// Package config loads and validates the gridpulse configuration.
//
// # Configuration Sources
//
// Configuration is layered, highest precedence first:
//
//  1. Environment variables (GRIDPULSE_*), including an optional .env file
//  2. YAML file (GRIDPULSE_CONFIG_FILE, config.yaml or configs/config.yaml)
//  3. Default()
//
// # Environment Variables
//
// Variables follow the nested struct layout:
//
//	GRIDPULSE_SERVER_PORT=8080
//	GRIDPULSE_LOGGING_LEVEL=debug
//	GRIDPULSE_SOURCE_DEFAULT_LOCATION=https://example.com/power.csv
//	GRIDPULSE_SOURCE_REFRESH_SCHEDULE="0 * * * *"
//	GRIDPULSE_PIPELINE_ENCODING_CANDIDATES=utf-8,gbk,gb18030
//
// # Path Management
//
// Relative paths are resolved against the executable directory:
//
//	paths, err := cfg.ResolvedPaths()
//	out := paths.GetExportPath("power_utf8.csv")
package config
