package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIBase               string        `mapstructure:"api_base"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	QueryStaleSeconds     int64         `mapstructure:"query_stale_seconds"`
	QueryStaleTime        time.Duration `mapstructure:"-"`

	CacheType            string        `mapstructure:"cache_type"`
	BBoltPath            string        `mapstructure:"bbolt_path"`
	CacheCleanupSeconds  int64         `mapstructure:"cache_cleanup_interval_seconds"`
	CacheCleanupInterval time.Duration `mapstructure:"-"`

	TargetsFile         string        `mapstructure:"targets_file"`
	PublishersFile      string        `mapstructure:"publishers_file"`
	PollIntervalSeconds int64         `mapstructure:"poll_interval"`
	PollInterval        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "arcanalyse")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_base", "http://localhost:8000")
	v.SetDefault("request_timeout_seconds", 10)
	v.SetDefault("query_stale_seconds", 30)
	v.SetDefault("cache_type", "memory")
	v.SetDefault("bbolt_path", "./data/query-cache.db")
	v.SetDefault("cache_cleanup_interval_seconds", int64((10*time.Minute)/time.Second))
	v.SetDefault("targets_file", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("poll_interval", 60) // seconds

	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finalize validates numeric settings and derives durations.
func (cfg *Config) finalize() error {
	cfg.APIBase = strings.TrimSpace(cfg.APIBase)

	if cfg.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	if cfg.QueryStaleSeconds <= 0 {
		return fmt.Errorf("invalid query_stale_seconds (must be positive seconds)")
	}
	if cfg.CacheCleanupSeconds <= 0 {
		return fmt.Errorf("invalid cache_cleanup_interval_seconds (must be positive seconds)")
	}
	if cfg.PollIntervalSeconds <= 0 {
		return fmt.Errorf("invalid poll_interval (must be positive seconds)")
	}

	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	cfg.QueryStaleTime = time.Duration(cfg.QueryStaleSeconds) * time.Second
	cfg.CacheCleanupInterval = time.Duration(cfg.CacheCleanupSeconds) * time.Second
	cfg.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	return nil
}
