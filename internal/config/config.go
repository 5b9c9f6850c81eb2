package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "GRIDPULSE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Source    SourceConfig    `yaml:"source" envconfig:"SOURCE"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains CORS, request throttling and write-access configuration.
// When APIKeys is non-empty, endpoints that upload, delete or reload datasets
// require an X-API-Key header naming one of the keys; values are client names.
type SecurityConfig struct {
	AllowedOrigins []string          `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool              `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig   `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	APIKeys        map[string]string `yaml:"api_keys" envconfig:"API_KEYS"`
}

// RateLimitConfig contains rate limiting configuration for uploads
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	MaxSizeMB   int    `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB"`
	MaxBackups  int    `yaml:"max_backups" envconfig:"MAX_BACKUPS"`
	MaxAgeDays  int    `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration.
// Relative entries resolve against the executable directory.
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ExportsDir    string `yaml:"exports_dir" envconfig:"EXPORTS_DIR"`
	WebDir        string `yaml:"web_dir" envconfig:"WEB_DIR"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// SourceConfig describes where datasets come from
type SourceConfig struct {
	// DefaultLocation is a local path or http(s) URL preloaded at startup.
	DefaultLocation string        `yaml:"default_location" envconfig:"DEFAULT_LOCATION"`
	RefreshSchedule string        `yaml:"refresh_schedule" envconfig:"REFRESH_SCHEDULE"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
}

// PipelineConfig tunes the ingest stages
type PipelineConfig struct {
	EncodingCandidates []string          `yaml:"encoding_candidates" envconfig:"ENCODING_CANDIDATES"`
	ForecastColumns    map[string]string `yaml:"forecast_columns" envconfig:"FORECAST_COLUMNS"`
	MaxAnomalies       int               `yaml:"max_anomalies" envconfig:"MAX_ANOMALIES"`
	MaxSkipLogs        int               `yaml:"max_skip_logs" envconfig:"MAX_SKIP_LOGS"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// TelemetryConfig controls tracing and metrics export
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// Load builds the configuration. Precedence, highest first: environment
// (including an optional .env file), YAML config file, Default().
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit YAML path; an empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg; keys absent from the file keep their value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}

	if c.Security.RateLimit.Enabled {
		if c.Security.RateLimit.RPS <= 0 {
			return fmt.Errorf("rate limit rps must be positive: %v", c.Security.RateLimit.RPS)
		}
		if c.Security.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive: %d", c.Security.RateLimit.Burst)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid log output: %q", c.Logging.Output)
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	if c.Source.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.Source.RefreshSchedule); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", c.Source.RefreshSchedule, err)
		}
	}

	if c.Source.FetchTimeout <= 0 {
		return fmt.Errorf("source fetch timeout must be positive")
	}

	if c.Source.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if len(c.Pipeline.EncodingCandidates) == 0 {
		return fmt.Errorf("at least one encoding candidate must be specified")
	}
	for _, name := range c.Pipeline.EncodingCandidates {
		if _, err := htmlindex.Get(name); err != nil {
			return fmt.Errorf("unknown encoding candidate %q", name)
		}
	}

	if c.Pipeline.MaxAnomalies <= 0 {
		return fmt.Errorf("max anomalies must be positive: %d", c.Pipeline.MaxAnomalies)
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG_FILE"); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     5,
				Burst:   10,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "console",
			FilePath:   "logs/gridpulse.log",
			MaxSizeMB:  MaxLogFileSizeMB,
			MaxBackups: MaxLogFileBackups,
			MaxAgeDays: MaxLogFileAge,
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			ExportsDir: DefaultExportsDir,
			WebDir:     DefaultWebDir,
			LogsDir:    DefaultLogsDir,
		},
		Source: SourceConfig{
			DefaultLocation: DefaultSourceFile,
			FetchTimeout:    DefaultFetchTimeout,
			MaxUploadBytes:  DefaultMaxUploadBytes,
		},
		Pipeline: PipelineConfig{
			EncodingCandidates: []string{"utf-8", "gbk", "gb2312", "big5", "gb18030"},
			ForecastColumns: map[string]string{
				"价格差值预测": "价格差值预测",
				"日前价格预测": "日前价格预测",
			},
			MaxAnomalies: 100,
			MaxSkipLogs:  20,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			TracingEnabled: false,
			MetricsEnabled: true,
		},
	}
}
