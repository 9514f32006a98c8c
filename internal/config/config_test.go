package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8112", cfg.ListenAddr)
	assert.Equal(t, time.Hour, cfg.RefreshInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 24, cfg.WindowMonths)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("redis_addr: localhost:6379\nrefresh_interval: 15m\nlog_level: debug\nhouseholds:\n  - hh-1\n  - hh-2\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("PERMONEY_REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6379", cfg.RedisAddr, "env must win over file")
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"hh-1", "hh-2"}, cfg.Households)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
