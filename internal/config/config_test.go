package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORE_TIMEZONE", "")
	t.Setenv("LOOKBACK_DAYS", "")
	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, SourcePostgres, cfg.DataSource)
	assert.Equal(t, 30, cfg.LookbackDays)
	require.NotNil(t, cfg.Location)
	assert.Equal(t, "Asia/Kolkata", cfg.Location.String())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATA_SOURCE", "HTTP")
	t.Setenv("STORE_TIMEZONE", "UTC")
	t.Setenv("CACHE_TTL_MINUTES", "5")
	cfg := FromEnv()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, SourceHTTP, cfg.DataSource)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
data_source: http
orders_api_url: http://orders.local/orders
lookback_days: 7
store_timezone: UTC
log_level: warn
`), 0o600))
	t.Setenv("PORT", "")
	t.Setenv("STORE_TIMEZONE", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ORDERS_API_URL", "")
	t.Setenv("LOOKBACK_DAYS", "14")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, SourceHTTP, cfg.DataSource)
	assert.Equal(t, "http://orders.local/orders", cfg.OrdersURL)
	assert.Equal(t, 14, cfg.LookbackDays)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("STORE_TIMEZONE", "Mars/Olympus")
	_, err = Load("")
	assert.Error(t, err)
}

func TestDateRange(t *testing.T) {
	cfg := Config{LookbackDays: 30, Location: time.UTC}
	now := time.Date(2024, 5, 31, 18, 0, 0, 0, time.UTC)
	from, to, err := cfg.DateRange(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), to)

	cfg.StartDate, cfg.EndDate = "2024-04-01", "2024-04-10"
	from, to, err = cfg.DateRange(now)
	require.NoError(t, err)
	assert.Equal(t, 1, from.Day())
	assert.Equal(t, 10, to.Day())

	cfg.StartDate, cfg.EndDate = "2024-04-10", "2024-04-01"
	_, _, err = cfg.DateRange(now)
	assert.Error(t, err)
}
