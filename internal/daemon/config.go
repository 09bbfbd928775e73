// Package daemon manages the islandcalc server lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"

	"github.com/islandcalc/islandcalc/internal/infra/pricefeed"
)

// EnvPrefix prefixes every environment override, e.g. ISLANDCALC_API_PORT.
const EnvPrefix = "ISLANDCALC"

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api" split_words:"true"`
	PriceFeed PriceFeedConfig `toml:"price_feed" split_words:"true"`
	Sessions  SessionsConfig  `toml:"sessions" split_words:"true"`
	Economy   EconomyConfig   `toml:"economy" split_words:"true"`
	Storage   StorageConfig   `toml:"storage" split_words:"true"`
	Logging   LoggingConfig   `toml:"logging" split_words:"true"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host" split_words:"true" validate:"required"`
	Port        int      `toml:"port" split_words:"true" validate:"min=1,max=65535"`
	CORSOrigins []string `toml:"cors_origins" split_words:"true"`
	Metrics     bool     `toml:"metrics" split_words:"true"`
}

// PriceFeedConfig controls the spot price client and its refresh schedule.
type PriceFeedConfig struct {
	Enabled     bool   `toml:"enabled" split_words:"true"`
	BaseURL     string `toml:"base_url" split_words:"true" validate:"required,url"`
	TokenID     string `toml:"token_id" split_words:"true" validate:"required"`
	Timeout     string `toml:"timeout" split_words:"true"`
	MinInterval string `toml:"min_interval" split_words:"true"`
	Burst       int    `toml:"burst" split_words:"true" validate:"min=1"`
	CacheTTL    string `toml:"cache_ttl" split_words:"true"`
	RefreshCron string `toml:"refresh_cron" split_words:"true"` // empty disables
	HistoryKeep int    `toml:"history_keep" split_words:"true" validate:"min=1"`

	BreakerThreshold int    `toml:"breaker_threshold" split_words:"true" validate:"gte=0"` // 0 disables
	BreakerCooldown  string `toml:"breaker_cooldown" split_words:"true"`
}

// SessionsConfig bounds the in-memory session store.
type SessionsConfig struct {
	Max     int    `toml:"max" split_words:"true" validate:"min=1"`
	IdleTTL string `toml:"idle_ttl" split_words:"true"`
}

// EconomyConfig points at an optional YAML override of the reference tables.
type EconomyConfig struct {
	File string `toml:"file" split_words:"true"`
}

// StorageConfig controls where the quote log lives.
type StorageConfig struct {
	Dir string `toml:"dir" split_words:"true" validate:"required"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level" split_words:"true" validate:"oneof=trace debug info warn error"`
	Format string `toml:"format" split_words:"true" validate:"oneof=text json"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := islandHome()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8787,
			CORSOrigins: []string{"*"},
			Metrics:     true,
		},
		PriceFeed: PriceFeedConfig{
			Enabled:     true,
			BaseURL:     pricefeed.DefaultBaseURL,
			TokenID:     pricefeed.DefaultTokenID,
			Timeout:     "10s",
			MinInterval: "2s",
			Burst:       1,
			CacheTTL:    "60s",
			RefreshCron: "@every 5m",
			HistoryKeep: 1000,

			BreakerThreshold: 5,
			BreakerCooldown:  "1m",
		},
		Sessions: SessionsConfig{
			Max:     1024,
			IdleTTL: "30m",
		},
		Economy: EconomyConfig{
			File: filepath.Join(homeDir, "economy.yaml"),
		},
		Storage: StorageConfig{
			Dir: homeDir,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	return filepath.Join(islandHome(), "config.toml")
}

// LoadConfig reads config from path (default ~/.islandcalc/config.toml),
// then applies .env and ISLANDCALC_* environment overrides and validates.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = ConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig writes the config to path (default ~/.islandcalc/config.toml).
func SaveConfig(cfg Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

var validate = validator.New()

// Validate checks field constraints, durations and the cron schedule.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	durations := map[string]string{
		"price_feed.timeout":          c.PriceFeed.Timeout,
		"price_feed.min_interval":     c.PriceFeed.MinInterval,
		"price_feed.cache_ttl":        c.PriceFeed.CacheTTL,
		"price_feed.breaker_cooldown": c.PriceFeed.BreakerCooldown,
		"sessions.idle_ttl":           c.Sessions.IdleTTL,
	}
	for key, v := range durations {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid config: %s: %w", key, err)
		}
	}

	if c.PriceFeed.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.PriceFeed.RefreshCron); err != nil {
			return fmt.Errorf("invalid config: price_feed.refresh_cron: %w", err)
		}
	}
	return nil
}

// ClientConfig converts the feed settings for pricefeed.NewClient.
func (p PriceFeedConfig) ClientConfig() pricefeed.ClientConfig {
	return pricefeed.ClientConfig{
		BaseURL:  p.BaseURL,
		TokenID:  p.TokenID,
		Timeout:  parseDuration(p.Timeout, 10*time.Second),
		Interval: parseDuration(p.MinInterval, 0),
		Burst:    p.Burst,

		BreakerThreshold: p.BreakerThreshold,
		BreakerCooldown:  parseDuration(p.BreakerCooldown, time.Minute),
	}
}

// islandHome returns the islandcalc data directory.
func islandHome() string {
	if env := os.Getenv("ISLANDCALC_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".islandcalc")
}

// IslandHome is exported for use by other packages.
func IslandHome() string {
	return islandHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
