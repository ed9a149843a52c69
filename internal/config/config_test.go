package config

import (
	"os"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		API:      APIConfig{BaseURL: "http://127.0.0.1:5000", Timeout: 10 * time.Second},
		Cache:    CacheConfig{RedisAddr: "localhost:6379", TTL: time.Minute},
		Watch:    WatchConfig{PollInterval: 5 * time.Minute, MinBand: "high", InitialBackoff: 5 * time.Second, MaxBackoff: time.Minute},
		Telegram: TelegramConfig{MaxRetries: 3, RetryDelayBase: time.Second},
		Storage:  StorageConfig{DBPath: "./data/test.db", MaxChecks: 100},
		MockAPI:  MockAPIConfig{Port: 5000},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestLoadAndValidate(t *testing.T) {
	// Create temp config file
	content := `
api:
  base_url: "http://192.168.1.20:5000"
  timeout: 5s
  requests_per_sec: 2

cache:
  enabled: true
  redis_addr: "redis:6379"
  ttl: 30s

watch:
  poll_interval: 2m
  query: "roland"
  min_band: medium

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

storage:
  db_path: "./data/test.db"

logging:
  level: "debug"
  format: "json"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Test Load
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify values
	if cfg.API.BaseURL != "http://192.168.1.20:5000" {
		t.Errorf("Unexpected base url: %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("Unexpected timeout: %v", cfg.API.Timeout)
	}
	if cfg.API.RequestsPerSec != 2 {
		t.Errorf("Unexpected requests_per_sec: %v", cfg.API.RequestsPerSec)
	}
	if !cfg.Cache.Enabled || cfg.Cache.RedisAddr != "redis:6379" || cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.Watch.PollInterval != 2*time.Minute || cfg.Watch.Query != "roland" || cfg.Watch.MinBand != "medium" {
		t.Errorf("Unexpected watch config: %+v", cfg.Watch)
	}

	// Defaults fill what the file leaves out
	if cfg.Watch.MaxBackoff != time.Minute {
		t.Errorf("Unexpected max backoff default: %v", cfg.Watch.MaxBackoff)
	}
	if cfg.Telegram.MaxRetries != 3 {
		t.Errorf("Unexpected max retries default: %d", cfg.Telegram.MaxRetries)
	}
	if cfg.Storage.MaxChecks != 100 {
		t.Errorf("Unexpected max checks default: %d", cfg.Storage.MaxChecks)
	}
	if cfg.MockAPI.Port != 5000 {
		t.Errorf("Unexpected mock api port default: %d", cfg.MockAPI.Port)
	}

	// Test Validate
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != "" {
		t.Errorf("base url should default to empty, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("Unexpected default timeout: %v", cfg.API.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TENNIS_ORACLE_API_BASE_URL", "https://predictions.example.com")
	t.Setenv("TENNIS_ORACLE_WATCH_MIN_BAND", "low")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != "https://predictions.example.com" {
		t.Errorf("env override not applied: %q", cfg.API.BaseURL)
	}
	if cfg.Watch.MinBand != "low" {
		t.Errorf("env override not applied: %q", cfg.Watch.MinBand)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "empty base url uses settings", mutate: func(c *Config) { c.API.BaseURL = "" }, wantErr: false},
		{name: "base url without scheme", mutate: func(c *Config) { c.API.BaseURL = "127.0.0.1:5000" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.API.Timeout = 0 }, wantErr: true},
		{name: "negative rate", mutate: func(c *Config) { c.API.RequestsPerSec = -1 }, wantErr: true},
		{name: "cache enabled without addr", mutate: func(c *Config) { c.Cache.Enabled = true; c.Cache.RedisAddr = "" }, wantErr: true},
		{name: "cache enabled without ttl", mutate: func(c *Config) { c.Cache.Enabled = true; c.Cache.TTL = 0 }, wantErr: true},
		{name: "poll interval too short", mutate: func(c *Config) { c.Watch.PollInterval = time.Second }, wantErr: true},
		{name: "unknown band", mutate: func(c *Config) { c.Watch.MinBand = "extreme" }, wantErr: true},
		{name: "all band", mutate: func(c *Config) { c.Watch.MinBand = "all" }, wantErr: true},
		{name: "max backoff below initial", mutate: func(c *Config) { c.Watch.MaxBackoff = time.Second }, wantErr: true},
		{name: "missing telegram token when enabled", mutate: func(c *Config) { c.Telegram.Enabled = true; c.Telegram.ChatID = "1" }, wantErr: true},
		{name: "missing telegram chat id when enabled", mutate: func(c *Config) { c.Telegram.Enabled = true; c.Telegram.BotToken = "x" }, wantErr: true},
		{name: "zero telegram retries", mutate: func(c *Config) { c.Telegram.MaxRetries = 0 }, wantErr: true},
		{name: "missing db path", mutate: func(c *Config) { c.Storage.DBPath = "" }, wantErr: true},
		{name: "zero max checks", mutate: func(c *Config) { c.Storage.MaxChecks = 0 }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.MockAPI.Port = 70000 }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
