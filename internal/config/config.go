// Package config defines the top-level configuration for the ladder planner
// backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by LADDERD_* environment variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Pricing  PricingConfig  `toml:"pricing"`
	Alerts   AlertsConfig   `toml:"alerts"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr            string `toml:"addr"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	PoolSize        int    `toml:"pool_size"`
	MaxRetries      int    `toml:"max_retries"`
	TLSEnabled      bool   `toml:"tls_enabled"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
}

// S3Config holds S3-compatible object storage parameters for trade archives.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PricingConfig controls the consensus price service.
type PricingConfig struct {
	// Sources selects which exchange sources to query. Valid entries:
	// "binance", "coinbase", "kraken".
	Sources []string `toml:"sources"`
	// Quorum is the minimum number of source answers required for a
	// consensus price. Clamped to the number of configured sources.
	Quorum int `toml:"quorum"`
	// FreshFor is how long a cached consensus price is served before the
	// sources are queried again.
	FreshFor duration `toml:"fresh_for"`
	// RequestsPerMinute throttles each upstream source.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// AlertsConfig controls the near-level alert checker.
type AlertsConfig struct {
	Enabled       bool     `toml:"enabled"`
	CheckInterval duration `toml:"check_interval"`
	// Cooldown suppresses repeat alerts for the same planner level.
	Cooldown duration `toml:"cooldown"`
}

// ArchiveConfig controls cold-storage export of aged trades.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKeyHash is the PBKDF2-encoded API key hash ("pbkdf2$<iter>$<salt>$<key>").
	// Authentication is disabled when empty.
	APIKeyHash string `toml:"api_key_hash"`
	// RateLimit is the per-client request budget per rate_window.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	SMTPHost       string   `toml:"smtp_host"`
	SMTPPort       int      `toml:"smtp_port"`
	SMTPUser       string   `toml:"smtp_user"`
	SMTPPassword   string   `toml:"smtp_password"`
	EmailFrom      string   `toml:"email_from"`
	EmailTo        []string `toml:"email_to"`
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	Events         []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "ladderd",
			User:          "ladderd",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:            "localhost:6379",
			DB:              0,
			PoolSize:        20,
			MaxRetries:      3,
			CacheTTLMinutes: 10,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "ladderd-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Pricing: PricingConfig{
			Sources:           []string{"binance", "coinbase", "kraken"},
			Quorum:            2,
			FreshFor:          duration{30 * time.Second},
			RequestsPerMinute: 30,
		},
		Alerts: AlertsConfig{
			Enabled:       true,
			CheckInterval: duration{1 * time.Minute},
			Cooldown:      duration{4 * time.Hour},
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 365,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{1 * time.Minute},
		},
		Notify: NotifyConfig{
			SMTPPort: 587,
			Events:   []string{"level_near", "planner_done", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve": true,
	"alert": true,
	"full":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validPriceSources enumerates the supported pricing sources.
var validPriceSources = map[string]bool{
	"binance":  true,
	"coinbase": true,
	"kraken":   true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, alert, full)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Postgres.DSN == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: either dsn or host must be set")
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must be set")
		}
		if c.Postgres.User == "" {
			errs = append(errs, "postgres: user must be set")
		}
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must be set")
	}

	if len(c.Pricing.Sources) == 0 {
		errs = append(errs, "pricing: at least one source must be configured")
	}
	for _, s := range c.Pricing.Sources {
		if !validPriceSources[strings.ToLower(s)] {
			errs = append(errs, fmt.Sprintf("pricing: unknown source %q (valid: binance, coinbase, kraken)", s))
		}
	}
	if c.Pricing.Quorum < 1 {
		errs = append(errs, "pricing: quorum must be at least 1")
	}
	if c.Pricing.RequestsPerMinute <= 0 {
		errs = append(errs, "pricing: requests_per_minute must be positive")
	}

	if c.Alerts.Enabled {
		if c.Alerts.CheckInterval.Duration <= 0 {
			errs = append(errs, "alerts: check_interval must be positive")
		}
		if c.Alerts.Cooldown.Duration <= 0 {
			errs = append(errs, "alerts: cooldown must be positive")
		}
	}

	if c.Archive.Enabled {
		if c.Archive.RetentionDays <= 0 {
			errs = append(errs, "archive: retention_days must be positive")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "archive: s3 bucket must be set when archiving is enabled")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: invalid port %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must not be negative")
		}
	}

	if c.Notify.SMTPHost != "" {
		if c.Notify.EmailFrom == "" {
			errs = append(errs, "notify: email_from is required when smtp_host is set")
		}
		if len(c.Notify.EmailTo) == 0 {
			errs = append(errs, "notify: email_to is required when smtp_host is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
