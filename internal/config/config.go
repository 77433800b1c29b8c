package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SourcePostgres = "postgres"
	SourceHTTP     = "http"
)

type Config struct {
	Port        string        `yaml:"port"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	LogLevel    slog.Level    `yaml:"-"`
	LogLevelRaw string        `yaml:"log_level"`

	DataSource  string `yaml:"data_source"`
	DatabaseURL string `yaml:"database_url"`
	OrdersURL   string `yaml:"orders_api_url"`
	AdsURL      string `yaml:"ads_api_url"`

	SinkURL    string `yaml:"sink_url"`
	SinkSecret string `yaml:"sink_secret"`

	Timezone     string         `yaml:"store_timezone"`
	Location     *time.Location `yaml:"-"`
	LookbackDays int            `yaml:"lookback_days"`
	StartDate    string         `yaml:"start_date"`
	EndDate      string         `yaml:"end_date"`

	RedisURL string        `yaml:"redis_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

func defaults() Config {
	return Config{
		Port:         "8080",
		HTTPTimeout:  15 * time.Second,
		LogLevelRaw:  "info",
		DataSource:   SourcePostgres,
		Timezone:     "Asia/Kolkata",
		LookbackDays: 30,
		CacheTTL:     30 * time.Minute,
	}
}

// FromEnv reads .env (when present) and the process environment over the
// defaults. An unknown timezone falls back to UTC.
func FromEnv() Config {
	_ = godotenv.Load()
	cfg := defaults()
	applyEnv(&cfg)
	if err := cfg.resolve(); err != nil {
		cfg.Location = time.UTC
	}
	return cfg
}

// Load overlays an optional YAML file on the defaults, then the environment
// on top of that.
func Load(path string) (Config, error) {
	_ = godotenv.Load()
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.resolve(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envOr("PORT", cfg.Port)
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	cfg.LogLevelRaw = envOr("LOG_LEVEL", cfg.LogLevelRaw)
	cfg.DataSource = envOr("DATA_SOURCE", cfg.DataSource)
	cfg.DatabaseURL = envOr("DATABASE_URL", cfg.DatabaseURL)
	cfg.OrdersURL = envOr("ORDERS_API_URL", cfg.OrdersURL)
	cfg.AdsURL = envOr("ADS_API_URL", cfg.AdsURL)
	cfg.SinkURL = envOr("SINK_URL", cfg.SinkURL)
	cfg.SinkSecret = envOr("SINK_SECRET", cfg.SinkSecret)
	cfg.Timezone = envOr("STORE_TIMEZONE", cfg.Timezone)
	cfg.LookbackDays = envInt("LOOKBACK_DAYS", cfg.LookbackDays)
	cfg.StartDate = envOr("START_DATE", cfg.StartDate)
	cfg.EndDate = envOr("END_DATE", cfg.EndDate)
	cfg.RedisURL = envOr("REDIS_URL", cfg.RedisURL)
	if m := envInt("CACHE_TTL_MINUTES", 0); m > 0 {
		cfg.CacheTTL = time.Duration(m) * time.Minute
	}
}

func (c *Config) resolve() error {
	switch strings.ToLower(strings.TrimSpace(c.LogLevelRaw)) {
	case "debug":
		c.LogLevel = slog.LevelDebug
	case "warn", "warning":
		c.LogLevel = slog.LevelWarn
	case "error":
		c.LogLevel = slog.LevelError
	default:
		c.LogLevel = slog.LevelInfo
	}
	c.DataSource = strings.ToLower(strings.TrimSpace(c.DataSource))
	if c.LookbackDays <= 0 {
		c.LookbackDays = 30
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc
	return nil
}

// DateRange is [StartDate, EndDate] when both are set, else the lookback
// window ending today. Both bounds are midnight in the store timezone.
func (c Config) DateRange(now time.Time) (from, to time.Time, err error) {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	if c.StartDate != "" && c.EndDate != "" {
		if from, err = time.ParseInLocation("2006-01-02", c.StartDate, loc); err != nil {
			return from, to, fmt.Errorf("config: START_DATE: %w", err)
		}
		if to, err = time.ParseInLocation("2006-01-02", c.EndDate, loc); err != nil {
			return from, to, fmt.Errorf("config: END_DATE: %w", err)
		}
		if to.Before(from) {
			return from, to, fmt.Errorf("config: END_DATE %s before START_DATE %s", c.EndDate, c.StartDate)
		}
		return from, to, nil
	}
	n := now.In(loc)
	to = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	return to.AddDate(0, 0, -c.LookbackDays), to, nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}
