package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "serve"
log_level = "debug"

[postgres]
host = "db.internal"
password = "hunter2"

[pricing]
sources = ["kraken"]
quorum = 1
fresh_for = "45s"

[alerts]
cooldown = "2h"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	// Untouched sections keep their defaults.
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"kraken"}, cfg.Pricing.Sources)
	assert.Equal(t, 45*time.Second, cfg.Pricing.FreshFor.Duration)
	assert.Equal(t, 2*time.Hour, cfg.Alerts.Cooldown.Duration)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = \"full\"\n"), 0o600))

	t.Setenv("LADDERD_POSTGRES_PASSWORD", "from-env")
	t.Setenv("LADDERD_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("LADDERD_PRICING_SOURCES", "binance,kraken")
	t.Setenv("LADDERD_ALERTS_CHECK_INTERVAL", "30s")
	t.Setenv("LADDERD_ARCHIVE_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Postgres.Password)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, []string{"binance", "kraken"}, cfg.Pricing.Sources)
	assert.Equal(t, 30*time.Second, cfg.Alerts.CheckInterval.Duration)
	assert.True(t, cfg.Archive.Enabled)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "batch"
	cfg.LogLevel = "verbose"
	cfg.Redis.Addr = ""
	cfg.Pricing.Sources = []string{"binance", "bitfinex"}
	cfg.Server.Port = 70000

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "batch"`)
	assert.Contains(t, err.Error(), `unknown log_level "verbose"`)
	assert.Contains(t, err.Error(), "redis: addr must be set")
	assert.Contains(t, err.Error(), `unknown source "bitfinex"`)
	assert.Contains(t, err.Error(), "invalid port 70000")
}

func TestValidateArchiveRequiresBucket(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.Enabled = true
	cfg.S3.Bucket = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 bucket must be set")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
