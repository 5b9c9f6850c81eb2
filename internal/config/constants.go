package config

import "time"

// Application constants
const (
	AppName    = "gridpulse"
	AppVersion = "1.0.0"

	// Network timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultFetchTimeout = 60 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultExportsDir = "data/exports"
	DefaultLogsDir    = "logs"
	DefaultWebDir     = "web"
	DefaultSourceFile = "data/power_data.csv"

	// Upload limits
	DefaultMaxUploadBytes = 64 << 20 // 64MB

	// Log settings
	MaxLogFileSizeMB  = 100
	MaxLogFileAge     = 30 // days
	MaxLogFileBackups = 10

	// Endpoints
	APIBasePath       = "/api/v1"
	DatasetsEndpoint  = "/api/v1/datasets"
	HealthEndpoint    = "/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
