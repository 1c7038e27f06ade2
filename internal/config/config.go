package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. ISSUEPULSE_SERVER_PORT.
const EnvPrefix = "ISSUEPULSE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Dashboard DashboardConfig `yaml:"dashboard" envconfig:"DASHBOARD"`
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
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
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
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration.
// Relative paths are resolved against the base directory.
type PathsConfig struct {
	BaseDir        string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir        string `yaml:"data_dir" envconfig:"DATA_DIR"`
	LogsDir        string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	DefaultDataset string `yaml:"default_dataset" envconfig:"DEFAULT_DATASET"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	MaxMessageBytes int64         `yaml:"max_message_bytes" envconfig:"MAX_MESSAGE_BYTES"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
	WriteWait       time.Duration `yaml:"write_wait" envconfig:"WRITE_WAIT"`
}

// DashboardConfig contains dashboard session and upload settings
type DashboardConfig struct {
	SelectAllDefault bool          `yaml:"select_all_default" envconfig:"SELECT_ALL_DEFAULT"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
	SessionTTL       time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL"`
	SweepInterval    time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL"`
	IdlePrompt       string        `yaml:"idle_prompt" envconfig:"IDLE_PROMPT"`
}

// TelemetryConfig selects the trace exporter and metrics endpoint
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// Load loads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file path. An empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching variable keep their file or default value.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// ResolvePaths resolves the configured directories to absolute paths.
func (c *Config) ResolvePaths() (*Paths, error) {
	return ResolvePaths(c.Paths)
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
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Dashboard.MaxUploadBytes <= 0 {
		return fmt.Errorf("dashboard max upload bytes must be positive")
	}

	if c.Dashboard.SessionTTL < 0 {
		return fmt.Errorf("dashboard session ttl must not be negative")
	}

	if c.Dashboard.SessionTTL > 0 && c.Dashboard.SweepInterval <= 0 {
		return fmt.Errorf("dashboard sweep interval must be positive when sessions expire")
	}

	switch c.Telemetry.TraceExporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("unknown trace exporter %q (want none or stdout)", c.Telemetry.TraceExporter)
	}

	// JSON is the only supported log format
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		return explicit
	}

	// Check for config file in common locations
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
			RequestTimeout:  DefaultRequestTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir: DefaultDataDir,
			LogsDir: DefaultLogsDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  WebSocketReadBufferSize,
			WriteBufferSize: WebSocketWriteBufferSize,
			MaxMessageBytes: WebSocketMaxMessageBytes,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
			WriteWait:       WebSocketWriteWait,
		},
		Dashboard: DashboardConfig{
			SelectAllDefault: true,
			MaxUploadBytes:   DefaultMaxUploadBytes,
			SessionTTL:       DefaultSessionTTL,
			SweepInterval:    DefaultSweepInterval,
			IdlePrompt:       DefaultIdlePrompt,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			TraceExporter:  "none",
			MetricsEnabled: true,
		},
	}
}
