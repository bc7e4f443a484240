package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ESELECTOR"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Dataset   DatasetConfig   `yaml:"dataset" envconfig:"DATASET"`
	Filter    FilterConfig    `yaml:"filter" envconfig:"FILTER"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Session   SessionConfig   `yaml:"session" envconfig:"SESSION"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" validate:"gt=0"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
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
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration. Relative entries
// resolve against BaseDir, which defaults to the working directory.
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR" validate:"required"`
	CacheDir   string `yaml:"cache_dir" envconfig:"CACHE_DIR" validate:"required"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// DatasetConfig selects where the cleaner records come from.
type DatasetConfig struct {
	Source            string `yaml:"source" envconfig:"SOURCE" validate:"oneof=file sheets"`
	File              string `yaml:"file" envconfig:"FILE" validate:"required_if=Source file"`
	Sheet             string `yaml:"sheet" envconfig:"SHEET"`
	SpreadsheetID     string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID" validate:"required_if=Source sheets"`
	SheetsRange       string `yaml:"sheets_range" envconfig:"SHEETS_RANGE"`
	SheetsCredentials string `yaml:"sheets_credentials" envconfig:"SHEETS_CREDENTIALS"`
	SheetsAPIKey      string `yaml:"sheets_api_key" envconfig:"SHEETS_API_KEY"`
}

// FilterConfig tunes view computation.
type FilterConfig struct {
	RangePolicy string `yaml:"range_policy" envconfig:"RANGE_POLICY" validate:"oneof=always with-categorical"`
}

// ExportConfig contains download settings.
type ExportConfig struct {
	ImageRenderer string        `yaml:"image_renderer" envconfig:"IMAGE_RENDERER" validate:"oneof=raster chrome"`
	ImageTimeout  time.Duration `yaml:"image_timeout" envconfig:"IMAGE_TIMEOUT" validate:"gt=0"`
	ChromePath    string        `yaml:"chrome_path" envconfig:"CHROME_PATH"`
	CSVBOM        bool          `yaml:"csv_bom" envconfig:"CSV_BOM"`
	MaxImageRows  int           `yaml:"max_image_rows" envconfig:"MAX_IMAGE_ROWS" validate:"gte=0"`
}

// SessionConfig controls per-browser filter state.
type SessionConfig struct {
	CookieName    string        `yaml:"cookie_name" envconfig:"COOKIE_NAME" validate:"required"`
	Secret        string        `yaml:"secret" envconfig:"SECRET"`
	SecureCookie  bool          `yaml:"secure_cookie" envconfig:"SECURE_COOKIE"`
	TTL           time.Duration `yaml:"ttl" envconfig:"TTL" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL" validate:"gt=0"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" validate:"gt=0"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" validate:"gt=0"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" validate:"gt=0"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" validate:"gtfield=PingPeriod"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled        bool    `yaml:"enabled" envconfig:"ENABLED"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// LoadOptions points Load at explicit files. Empty fields fall back to
// discovery in the working directory.
type LoadOptions struct {
	ConfigFile string
	EnvFile    string
}

// Load builds the configuration with the precedence
// defaults < config.yaml < .env file < process environment.
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions is Load with explicit file locations.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	cfg := Default()

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadEnvFile exports the variables of a dotenv file without overriding
// variables already present in the environment. A missing default .env is
// not an error; a missing explicit file is.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	return godotenv.Load(path)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validate validates the configuration
func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}

	// Logs are always JSON.
	c.Logging.Format = "json"
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/eselector.log"
	}
	if c.Dataset.Source == "sheets" && c.Dataset.SheetsRange == "" {
		c.Dataset.SheetsRange = "Sheet1"
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
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  45 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   100,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/eselector.log",
		},
		Paths: PathsConfig{
			DataDir:    ".",
			ExportsDir: "exports",
			CacheDir:   "cache",
			LogsDir:    "logs",
		},
		Dataset: DatasetConfig{
			Source:      "file",
			File:        DefaultDatasetFile,
			SheetsRange: "Sheet1",
		},
		Filter: FilterConfig{
			RangePolicy: "always",
		},
		Export: ExportConfig{
			ImageRenderer: "raster",
			ImageTimeout:  30 * time.Second,
			MaxImageRows:  DefaultMaxImageRows,
		},
		Session: SessionConfig{
			CookieName:    "eselector_session",
			TTL:           12 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Enabled:        true,
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
