// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Database configuration
	DB DBConfig `yaml:"db"`

	// Marketplace source configuration
	Sources SourcesConfig `yaml:"sources"`

	// Fetch client configuration
	Fetch FetchConfig `yaml:"fetch"`

	// Rate limit configuration
	RateLimits RateLimitConfig `yaml:"rate_limits"`

	// Mining configuration
	Mining MiningConfig `yaml:"mining"`

	// Paid search-volume provider configuration
	Volume VolumeConfig `yaml:"volume"`

	// Event bus configuration
	Bus BusConfig `yaml:"bus"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// DBConfig holds SQLite settings.
type DBConfig struct {
	Path string `envconfig:"KWSCOUT_DB_PATH" yaml:"path"`
}

// SourcesConfig holds marketplace endpoint settings.
type SourcesConfig struct {
	AutocompleteURL string `envconfig:"KWSCOUT_AUTOCOMPLETE_URL" yaml:"autocomplete_url"`
	MarketplaceID   string `envconfig:"KWSCOUT_MARKETPLACE_ID" yaml:"marketplace_id"`
	ProductURL      string `envconfig:"KWSCOUT_PRODUCT_URL" yaml:"product_url"`
}

// FetchConfig holds resilient fetch client settings.
type FetchConfig struct {
	MaxAttempts int           `envconfig:"KWSCOUT_FETCH_MAX_ATTEMPTS" yaml:"max_attempts"`
	BackoffBase time.Duration `envconfig:"KWSCOUT_FETCH_BACKOFF_BASE" yaml:"backoff_base"`
	Timeout     time.Duration `envconfig:"KWSCOUT_FETCH_TIMEOUT" yaml:"timeout"`
	ProxyPool   []string      `envconfig:"KWSCOUT_PROXY_POOL" yaml:"proxy_pool"`
	CacheTTL    time.Duration `envconfig:"KWSCOUT_FETCH_CACHE_TTL" yaml:"cache_ttl"` // 0 = cache disabled
}

// RateLimitConfig holds per-source token bucket settings, in requests/second.
type RateLimitConfig struct {
	Autocomplete float64 `envconfig:"KWSCOUT_RATE_AUTOCOMPLETE" yaml:"autocomplete"`
	Product      float64 `envconfig:"KWSCOUT_RATE_PRODUCT" yaml:"product"`
	Volume       float64 `envconfig:"KWSCOUT_RATE_VOLUME" yaml:"volume"`
	Burst        int     `envconfig:"KWSCOUT_RATE_BURST" yaml:"burst"`
}

// MiningConfig holds frontier miner settings.
type MiningConfig struct {
	Workers      int    `envconfig:"KWSCOUT_MINE_WORKERS" yaml:"workers"`
	DefaultDepth int    `envconfig:"KWSCOUT_MINE_DEPTH" yaml:"default_depth"`
	Department   string `envconfig:"KWSCOUT_DEPARTMENT" yaml:"department"`
}

// VolumeConfig holds paid provider credentials. Absent by default.
type VolumeConfig struct {
	BaseURL string `envconfig:"KWSCOUT_VOLUME_URL" yaml:"base_url"`
	Login   string `envconfig:"KWSCOUT_VOLUME_LOGIN" yaml:"login"`
	APIKey  string `envconfig:"KWSCOUT_VOLUME_API_KEY" yaml:"api_key"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"KWSCOUT_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"KWSCOUT_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"KWSCOUT_KAFKA_GROUP" yaml:"kafka_group"`
}

// MetricsConfig holds pipeline metrics settings.
type MetricsConfig struct {
	Enabled  bool   `envconfig:"KWSCOUT_METRICS_ENABLED" yaml:"enabled"`
	RedisURL string `envconfig:"KWSCOUT_METRICS_REDIS_URL" yaml:"redis_url"` // empty = in-memory only
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"KWSCOUT_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"KWSCOUT_LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.DB = DBConfig{
		Path: "data/kwscout.db",
	}

	cfg.Sources = SourcesConfig{
		AutocompleteURL: "https://completion.amazon.com/api/2017/suggestions",
		MarketplaceID:   "ATVPDKIKX0DER",
		ProductURL:      "https://www.amazon.com/dp",
	}

	cfg.Fetch = FetchConfig{
		MaxAttempts: 3,
		BackoffBase: time.Second,
		Timeout:     15 * time.Second,
		CacheTTL:    0,
	}

	cfg.RateLimits = RateLimitConfig{
		Autocomplete: 2.0,
		Product:      0.5,
		Volume:       1.0,
		Burst:        1,
	}

	cfg.Mining = MiningConfig{
		Workers:      4,
		DefaultDepth: 1,
		Department:   "ebook",
	}

	cfg.Volume = VolumeConfig{
		BaseURL: "https://api.dataforseo.com/v3",
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Metrics = MetricsConfig{
		Enabled: true,
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.DB.Path == "" {
		errs = append(errs, "db path must not be empty")
	}

	if c.Sources.AutocompleteURL == "" {
		errs = append(errs, "autocomplete URL must not be empty")
	}

	if c.Fetch.MaxAttempts < 1 {
		errs = append(errs, "fetch max_attempts must be at least 1")
	}

	if c.Fetch.BackoffBase <= 0 {
		errs = append(errs, "fetch backoff_base must be positive")
	}

	if c.Fetch.Timeout <= 0 {
		errs = append(errs, "fetch timeout must be positive")
	}

	if c.RateLimits.Autocomplete <= 0 || c.RateLimits.Product <= 0 || c.RateLimits.Volume <= 0 {
		errs = append(errs, "rate limits must be positive")
	}

	if c.RateLimits.Burst < 1 {
		errs = append(errs, "rate burst must be at least 1")
	}

	if c.Mining.Workers < 1 {
		errs = append(errs, "mining workers must be at least 1")
	}

	if c.Mining.DefaultDepth < 0 || c.Mining.DefaultDepth > 2 {
		errs = append(errs, "mining default_depth must be 0, 1, or 2")
	}

	validDepartments := map[string]bool{"ebook": true, "print": true, "all": true}
	if !validDepartments[c.Mining.Department] {
		errs = append(errs, fmt.Sprintf("invalid department: %s (must be ebook, print, or all)", c.Mining.Department))
	}

	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// VolumeConfigured reports whether the paid volume provider has credentials.
func (c *Config) VolumeConfigured() bool {
	return c.Volume.Login != "" && c.Volume.APIKey != ""
}
