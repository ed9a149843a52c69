package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rewired-gh/tennisoracle/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	MockAPI  MockAPIConfig  `mapstructure:"mockapi"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// APIConfig holds prediction service client configuration
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"` // empty = use the saved settings address
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"` // 0 = unlimited
}

// CacheConfig holds the optional Redis read-through cache configuration
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// WatchConfig holds auto-refresh watcher configuration
type WatchConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Query          string        `mapstructure:"query"`
	MinBand        string        `mapstructure:"min_band"`
	Cooldown       time.Duration `mapstructure:"cooldown"` // 0 = announce each match once
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	DBPath    string `mapstructure:"db_path"`
	MaxChecks int    `mapstructure:"max_checks"`
}

// MockAPIConfig holds the local mock prediction service configuration
type MockAPIConfig struct {
	Port           int      `mapstructure:"port"`
	FixturesPath   string   `mapstructure:"fixtures_path"` // empty = built-in sample fixtures
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional file, a .env file in the working
// directory and environment variables. An empty path skips the config file.
func Load(path string) (*Config, error) {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override, e.g. TENNIS_ORACLE_API_BASE_URL
	v.SetEnvPrefix("TENNIS_ORACLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.requests_per_sec", 0.0)

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "1m")

	// Watch defaults
	v.SetDefault("watch.poll_interval", "5m")
	v.SetDefault("watch.query", "")
	v.SetDefault("watch.min_band", "high")
	v.SetDefault("watch.cooldown", "0s")
	v.SetDefault("watch.initial_backoff", "5s")
	v.SetDefault("watch.max_backoff", "1m")

	// Telegram defaults
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/tennisoracle.db")
	v.SetDefault("storage.max_checks", 100)

	// Mock API defaults
	v.SetDefault("mockapi.port", 5000)
	v.SetDefault("mockapi.fixtures_path", "")
	v.SetDefault("mockapi.allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate API config
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("api.base_url must be an http(s) URL with a host")
		}
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.API.RequestsPerSec < 0 {
		return fmt.Errorf("api.requests_per_sec must not be negative")
	}

	// Validate Cache config
	if c.Cache.Enabled {
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required when cache is enabled")
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive when cache is enabled")
		}
	}
	if c.Cache.RedisDB < 0 {
		return fmt.Errorf("cache.redis_db must not be negative")
	}

	// Validate Watch config
	if c.Watch.PollInterval < 10*time.Second {
		return fmt.Errorf("watch.poll_interval must be at least 10 seconds")
	}
	band, err := models.ParseBand(c.Watch.MinBand)
	if err != nil {
		return fmt.Errorf("watch.min_band: %w", err)
	}
	if band.IsAll() {
		return fmt.Errorf("watch.min_band must be one of: high, medium, low")
	}
	if c.Watch.Cooldown < 0 {
		return fmt.Errorf("watch.cooldown must not be negative")
	}
	if c.Watch.InitialBackoff <= 0 {
		return fmt.Errorf("watch.initial_backoff must be positive")
	}
	if c.Watch.MaxBackoff < c.Watch.InitialBackoff {
		return fmt.Errorf("watch.max_backoff must be at least watch.initial_backoff")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Telegram.MaxRetries < 1 {
		return fmt.Errorf("telegram.max_retries must be at least 1")
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxChecks < 1 {
		return fmt.Errorf("storage.max_checks must be at least 1")
	}

	// Validate Mock API config
	if c.MockAPI.Port < 1 || c.MockAPI.Port > 65535 {
		return fmt.Errorf("mockapi.port must be between 1 and 65535")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
