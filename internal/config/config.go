// Package config loads worker configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Config is the worker's runtime configuration.
type Config struct {
	// FirestoreProject selects the production store. Empty means the
	// in-memory store (local development / tests).
	FirestoreProject string `koanf:"firestore_project"`
	// RedisAddr selects the production cache. Empty means the in-memory
	// cache.
	RedisAddr string `koanf:"redis_addr"`
	// ListenAddr serves /health and /metrics.
	ListenAddr string `koanf:"listen_addr"`
	// RefreshInterval is the cadence of scheduled RefreshAllViews runs.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	// LogLevel is a zap level string (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Households bounds the data covered by materialized view rebuilds.
	Households []string `koanf:"households"`
	// WindowMonths is how many months of ledger history the views cover.
	WindowMonths int `koanf:"window_months"`
}

// Load reads configPath (optional) and applies PERMONEY_* environment
// overrides: PERMONEY_REDIS_ADDR -> redis_addr.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("PERMONEY_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PERMONEY_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8112"
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Hour
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.WindowMonths <= 0 {
		cfg.WindowMonths = 24
	}
}
