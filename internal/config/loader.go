package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LADDERD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known LADDERD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "LADDERD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "LADDERD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "LADDERD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "LADDERD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "LADDERD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "LADDERD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "LADDERD_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "LADDERD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "LADDERD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "LADDERD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "LADDERD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LADDERD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LADDERD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LADDERD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "LADDERD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "LADDERD_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.CacheTTLMinutes, "LADDERD_REDIS_CACHE_TTL_MINUTES")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "LADDERD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "LADDERD_S3_REGION")
	setStr(&cfg.S3.Bucket, "LADDERD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "LADDERD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "LADDERD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "LADDERD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "LADDERD_S3_FORCE_PATH_STYLE")

	// ── Pricing ──
	setStringSlice(&cfg.Pricing.Sources, "LADDERD_PRICING_SOURCES")
	setInt(&cfg.Pricing.Quorum, "LADDERD_PRICING_QUORUM")
	setDuration(&cfg.Pricing.FreshFor, "LADDERD_PRICING_FRESH_FOR")
	setInt(&cfg.Pricing.RequestsPerMinute, "LADDERD_PRICING_REQUESTS_PER_MINUTE")

	// ── Alerts ──
	setBool(&cfg.Alerts.Enabled, "LADDERD_ALERTS_ENABLED")
	setDuration(&cfg.Alerts.CheckInterval, "LADDERD_ALERTS_CHECK_INTERVAL")
	setDuration(&cfg.Alerts.Cooldown, "LADDERD_ALERTS_COOLDOWN")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "LADDERD_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "LADDERD_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "LADDERD_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "LADDERD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "LADDERD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "LADDERD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKeyHash, "LADDERD_SERVER_API_KEY_HASH")
	setInt(&cfg.Server.RateLimit, "LADDERD_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "LADDERD_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.SMTPHost, "LADDERD_NOTIFY_SMTP_HOST")
	setInt(&cfg.Notify.SMTPPort, "LADDERD_NOTIFY_SMTP_PORT")
	setStr(&cfg.Notify.SMTPUser, "LADDERD_NOTIFY_SMTP_USER")
	setStr(&cfg.Notify.SMTPPassword, "LADDERD_NOTIFY_SMTP_PASSWORD")
	setStr(&cfg.Notify.EmailFrom, "LADDERD_NOTIFY_EMAIL_FROM")
	setStringSlice(&cfg.Notify.EmailTo, "LADDERD_NOTIFY_EMAIL_TO")
	setStr(&cfg.Notify.TelegramToken, "LADDERD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "LADDERD_NOTIFY_TELEGRAM_CHAT_ID")
	setStringSlice(&cfg.Notify.Events, "LADDERD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "LADDERD_MODE")
	setStr(&cfg.LogLevel, "LADDERD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
