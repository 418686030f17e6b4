package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Market      MarketConfig    `toml:"market"`
	Upstream    UpstreamConfig  `toml:"upstream"`
	Extractor   ExtractorConfig `toml:"extractor"`
	Quotes      QuotesConfig    `toml:"quotes"`
	Sync        SyncConfig      `toml:"sync"`
	Fiscal      FiscalConfig    `toml:"fiscal"`
	Jobs        JobsConfig      `toml:"jobs"`
	Metrics     MetricsConfig   `toml:"metrics"`
	Instruments []string        `toml:"instruments"` // Symbols seeded into storage on startup
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// MarketConfig describes the exchange trading session used by the session oracle.
type MarketConfig struct {
	Timezone string `toml:"timezone" validate:"required"` // IANA zone, e.g. "Asia/Kolkata"
	Open     string `toml:"open" validate:"required"`     // Session open wall-clock, "HH:MM"
	Close    string `toml:"close" validate:"required"`    // Session close wall-clock, "HH:MM"
	Weekdays []int  `toml:"weekdays"`                     // Trading weekdays, 0=Sunday (default Mon-Fri)
}

// UpstreamConfig configures the exchange data client.
type UpstreamConfig struct {
	BaseURL        string        `toml:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	RateLimit      int           `toml:"rate_limit" validate:"gt=0"` // Requests per second
	UserAgent      string        `toml:"user_agent"`
}

// ExtractorConfig configures the external results-extraction service.
type ExtractorConfig struct {
	BaseURL             string        `toml:"base_url" validate:"required,url"`
	RequestTimeout      time.Duration `toml:"request_timeout"`
	ConfidenceThreshold int           `toml:"confidence_threshold" validate:"gte=0,lte=100"`
}

// QuotesConfig configures live quote polling and caching.
type QuotesConfig struct {
	CacheTTL       time.Duration `toml:"cache_ttl"`       // Live quote TTL (default 2m)
	BatchSize      int           `toml:"batch_size"`      // Concurrent upstream fetches per batch
	BatchDelay     time.Duration `toml:"batch_delay"`     // Pause between batches
	StaleThreshold time.Duration `toml:"stale_threshold"` // Off-hours refresh threshold
}

// SyncConfig configures incremental historical sync windows.
type SyncConfig struct {
	DefaultWindowDays int `toml:"default_window_days" validate:"gt=0"`
	MaxWindowDays     int `toml:"max_window_days" validate:"gt=0"`
	AnnouncementDays  int `toml:"announcement_days" validate:"gt=0"` // Lookback for results publications
}

// FiscalConfig sets the fiscal calendar used for quarterly comparisons.
type FiscalConfig struct {
	StartMonth int `toml:"start_month" validate:"gte=1,lte=12"` // 4 = April-start fiscal year
}

// JobsConfig holds cron schedules for the recurring jobs.
type JobsConfig struct {
	LivePrice       string `toml:"live_price"`
	PriceRefresh    string `toml:"price_refresh"`
	Candlesticks    string `toml:"candlesticks"`
	Delivery        string `toml:"delivery"`
	Quarterly       string `toml:"quarterly"`
	ResultsCalendar string `toml:"results_calendar"`
	MetricsPrune    string `toml:"metrics_prune"`
}

// MetricsConfig configures job metric retention and alerting.
type MetricsConfig struct {
	RetentionDays  int `toml:"retention_days" validate:"gt=0"`
	AlertThreshold int `toml:"alert_threshold" validate:"gt=0"` // Consecutive failures before alert
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in fiscus.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Market: MarketConfig{
			Timezone: "Asia/Kolkata",
			Open:     "09:15",
			Close:    "15:30",
			Weekdays: []int{1, 2, 3, 4, 5}, // Monday through Friday
		},
		Upstream: UpstreamConfig{
			BaseURL:        "https://www.nseindia.com",
			RequestTimeout: 30 * time.Second,
			RateLimit:      3,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Extractor: ExtractorConfig{
			BaseURL:             "http://localhost:8090",
			RequestTimeout:      60 * time.Second,
			ConfidenceThreshold: 60,
		},
		Quotes: QuotesConfig{
			CacheTTL:       2 * time.Minute,
			BatchSize:      5,
			BatchDelay:     500 * time.Millisecond,
			StaleThreshold: 6 * time.Hour,
		},
		Sync: SyncConfig{
			DefaultWindowDays: 7,
			MaxWindowDays:     30,
			AnnouncementDays:  3,
		},
		Fiscal: FiscalConfig{
			StartMonth: 4, // April-start fiscal year
		},
		Jobs: JobsConfig{
			LivePrice:       "*/5 * * * * *",  // Every 5 seconds (seconds-enabled cron)
			PriceRefresh:    "0 */30 * * * *", // Every 30 minutes
			Candlesticks:    "0 15 18 * * *",  // Daily after market close
			Delivery:        "0 30 18 * * *",  // Daily after delivery data publishes
			Quarterly:       "0 0 19 * * *",   // Daily evening sweep
			ResultsCalendar: "0 */30 8-22 * * *",
			MetricsPrune:    "0 0 2 * * *",
		},
		Metrics: MetricsConfig{
			RetentionDays:  30,
			AlertThreshold: 3,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env -> CLI.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FISCUS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("FISCUS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("FISCUS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("FISCUS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("FISCUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("FISCUS_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Upstream configuration
	if baseURL := os.Getenv("FISCUS_UPSTREAM_BASE_URL"); baseURL != "" {
		config.Upstream.BaseURL = baseURL
	}
	if rateLimit := os.Getenv("FISCUS_UPSTREAM_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.Upstream.RateLimit = rl
		}
	}

	// Extractor configuration
	if baseURL := os.Getenv("FISCUS_EXTRACTOR_BASE_URL"); baseURL != "" {
		config.Extractor.BaseURL = baseURL
	}
	if threshold := os.Getenv("FISCUS_EXTRACTOR_CONFIDENCE_THRESHOLD"); threshold != "" {
		if t, err := strconv.Atoi(threshold); err == nil {
			config.Extractor.ConfidenceThreshold = t
		}
	}

	// Market configuration
	if tz := os.Getenv("FISCUS_MARKET_TIMEZONE"); tz != "" {
		config.Market.Timezone = tz
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks struct tags and cross-field constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		return fmt.Errorf("invalid market timezone %s: %w", c.Market.Timezone, err)
	}
	if _, _, err := parseWallClock(c.Market.Open); err != nil {
		return fmt.Errorf("invalid market open time: %w", err)
	}
	if _, _, err := parseWallClock(c.Market.Close); err != nil {
		return fmt.Errorf("invalid market close time: %w", err)
	}
	if c.Sync.MaxWindowDays < c.Sync.DefaultWindowDays {
		return fmt.Errorf("sync max_window_days (%d) must be >= default_window_days (%d)",
			c.Sync.MaxWindowDays, c.Sync.DefaultWindowDays)
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func parseWallClock(s string) (hour, min int, err error) {
	if _, err = fmt.Sscanf(s, "%d:%d", &hour, &min); err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("out of range wall-clock %q", s)
	}
	return hour, min, nil
}
