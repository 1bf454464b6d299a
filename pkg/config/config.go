package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Sheets     SheetsConfig
	TGStat     TGStatConfig
	OpenAI     OpenAIConfig
	TwelveLabs TwelveLabsConfig
	Archive    ArchiveConfig
	Redis      RedisConfig
	Runner     RunnerConfig
	Server     ServerConfig
	Logging    LoggingConfig
	Telemetry  TelemetryConfig
}

// SheetsConfig holds Google Sheets access configuration
type SheetsConfig struct {
	Endpoint             string
	Token                string
	ControlSpreadsheetID string
}

// TGStatConfig holds analytics provider configuration
type TGStatConfig struct {
	BaseURL   string
	Token     string
	PostLimit int
}

// OpenAIConfig holds text-generation provider configuration
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MiniModel string
}

// TwelveLabsConfig holds video-intelligence provider configuration
type TwelveLabsConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// ArchiveConfig holds the optional snapshot archive database configuration
type ArchiveConfig struct {
	URL     string
	Enabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL     string
	Enabled bool
}

// RunnerConfig holds batch runner configuration
type RunnerConfig struct {
	Once               bool
	Interval           time.Duration
	TopN               int
	StartLookbackDays  int
	RepeatLookbackDays int
	PromptsFile        string
}

// ServerConfig holds the status HTTP server configuration
type ServerConfig struct {
	Enabled bool
	Port    int
	Host    string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled           bool
	JaegerURL         string
	PrometheusEnabled bool
	PrometheusPort    int
	ServiceName       string
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	// Load from environment
	viper.SetEnvPrefix("TGREC")
	viper.AutomaticEnv()

	// Load from config file if exists
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.tgrec")
	viper.AddConfigPath("/etc/tgrec")

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found; this is OK if we have env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Sheets: SheetsConfig{
			Endpoint:             getString("sheets_endpoint", "https://sheets.googleapis.com/v4/spreadsheets"),
			Token:                getString("sheets_token", ""),
			ControlSpreadsheetID: getString("control_spreadsheet_id", ""),
		},
		TGStat: TGStatConfig{
			BaseURL:   getString("tgstat_url", "https://api.tgstat.ru"),
			Token:     getString("tgstat_token", ""),
			PostLimit: getInt("tgstat_post_limit", 50),
		},
		OpenAI: OpenAIConfig{
			BaseURL:   getString("openai_url", "https://api.openai.com/v1"),
			APIKey:    getString("openai_api_key", ""),
			Model:     getString("openai_model", "gpt-4o"),
			MiniModel: getString("openai_mini_model", "gpt-4o-mini"),
		},
		TwelveLabs: TwelveLabsConfig{
			BaseURL:      getString("twelvelabs_url", "https://api.twelvelabs.io/v1.3"),
			APIKey:       getString("twelvelabs_api_key", ""),
			Model:        getString("twelvelabs_model", "pegasus1.2"),
			PollInterval: getDuration("twelvelabs_poll_interval", 5*time.Second),
			PollTimeout:  getDuration("twelvelabs_poll_timeout", 15*time.Minute),
		},
		Archive: ArchiveConfig{
			URL:     getString("archive_database_url", ""),
			Enabled: getString("archive_database_url", "") != "",
		},
		Redis: RedisConfig{
			URL:     getString("redis_url", ""),
			Enabled: getString("redis_url", "") != "",
		},
		Runner: RunnerConfig{
			Once:               getBool("run_once", false),
			Interval:           getDuration("run_interval", time.Hour),
			TopN:               getInt("top_n", 10),
			StartLookbackDays:  getInt("start_lookback_days", 60),
			RepeatLookbackDays: getInt("repeat_lookback_days", 7),
			PromptsFile:        getString("prompts_file", ""),
		},
		Server: ServerConfig{
			Enabled: getBool("http_server_enabled", true),
			Port:    getInt("http_server_port", 8080),
			Host:    getString("http_server_host", "0.0.0.0"),
		},
		Logging: LoggingConfig{
			Level:  getString("log_level", "INFO"),
			Format: getString("log_format", "json"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           getBool("telemetry_enabled", false),
			JaegerURL:         getString("jaeger_url", ""),
			PrometheusEnabled: getBool("prometheus_enabled", false),
			PrometheusPort:    getInt("prometheus_port", 9090),
			ServiceName:       getString("service_name", "tgrec"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("sheets_endpoint", "https://sheets.googleapis.com/v4/spreadsheets")
	viper.SetDefault("tgstat_url", "https://api.tgstat.ru")
	viper.SetDefault("tgstat_post_limit", 50)
	viper.SetDefault("openai_url", "https://api.openai.com/v1")
	viper.SetDefault("openai_model", "gpt-4o")
	viper.SetDefault("openai_mini_model", "gpt-4o-mini")
	viper.SetDefault("twelvelabs_url", "https://api.twelvelabs.io/v1.3")
	viper.SetDefault("twelvelabs_model", "pegasus1.2")
	viper.SetDefault("run_interval", time.Hour)
	viper.SetDefault("top_n", 10)
	viper.SetDefault("start_lookback_days", 60)
	viper.SetDefault("repeat_lookback_days", 7)
	viper.SetDefault("http_server_enabled", true)
	viper.SetDefault("http_server_port", 8080)
	viper.SetDefault("http_server_host", "0.0.0.0")
	viper.SetDefault("log_level", "INFO")
	viper.SetDefault("log_format", "json")
	viper.SetDefault("telemetry_enabled", false)
	viper.SetDefault("service_name", "tgrec")
}

func getString(key, defaultValue string) string {
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	// Also check environment variable directly
	if val := os.Getenv("TGREC_" + toEnvKey(key)); val != "" {
		return val
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	if val := os.Getenv("TGREC_" + toEnvKey(key)); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	if val := os.Getenv("TGREC_" + toEnvKey(key)); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if viper.IsSet(key) {
		return viper.GetDuration(key)
	}
	if val := os.Getenv("TGREC_" + toEnvKey(key)); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultValue
}

func toEnvKey(key string) string {
	// Convert snake_case to UPPER_SNAKE_CASE
	result := ""
	for _, r := range key {
		if r == '-' || r == '_' {
			result += "_"
		} else if r >= 'a' && r <= 'z' {
			result += string(r - 32)
		} else {
			result += string(r)
		}
	}
	return result
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Sheets.ControlSpreadsheetID == "" {
		return fmt.Errorf("control_spreadsheet_id is required")
	}
	if c.TGStat.Token == "" {
		return fmt.Errorf("tgstat_token is required")
	}
	if c.TGStat.PostLimit <= 0 || c.TGStat.PostLimit > 1000 {
		return fmt.Errorf("tgstat_post_limit must be between 1 and 1000")
	}
	if c.Runner.TopN <= 0 || c.Runner.TopN > 100 {
		return fmt.Errorf("top_n must be between 1 and 100")
	}
	if c.Runner.StartLookbackDays <= 0 || c.Runner.RepeatLookbackDays <= 0 {
		return fmt.Errorf("lookback windows must be positive")
	}
	if c.TwelveLabs.PollInterval <= 0 {
		return fmt.Errorf("twelvelabs_poll_interval must be positive")
	}
	return nil
}
