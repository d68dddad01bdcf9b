/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cacheapp

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-lrucache/log"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadAppConfig("", DefaultEnvPrefix)
		require.NoError(t, err)
		require.Equal(t, 1000, cfg.Cache.MaxEntries)
		require.Equal(t, time.Minute, time.Duration(cfg.Cache.CleanupInterval))
		require.Equal(t, log.LevelInfo, cfg.Log.Level)
		require.Equal(t, ":8080", cfg.Server.Address)
		require.False(t, cfg.ProfServer.Enabled)
	})

	t.Run("yaml file", func(t *testing.T) {
		path := writeConfigFile(t, "config.yaml", `
cache:
  maxEntries: 10
  defaultTTL: 5m
log:
  level: debug
server:
  address: 127.0.0.1:9090
profServer:
  enabled: true
`)
		cfg, err := LoadAppConfig(path, DefaultEnvPrefix)
		require.NoError(t, err)
		require.Equal(t, 10, cfg.Cache.MaxEntries)
		require.Equal(t, 5*time.Minute, time.Duration(cfg.Cache.DefaultTTL))
		require.Equal(t, log.LevelDebug, cfg.Log.Level)
		require.Equal(t, "127.0.0.1:9090", cfg.Server.Address)
		require.True(t, cfg.ProfServer.Enabled)
	})

	t.Run("json file", func(t *testing.T) {
		path := writeConfigFile(t, "config.JSON", `{"cache": {"maxEntries": 7, "cleanupInterval": "0s"}}`)
		cfg, err := LoadAppConfig(path, DefaultEnvPrefix)
		require.NoError(t, err)
		require.Equal(t, 7, cfg.Cache.MaxEntries)
		require.Zero(t, cfg.Cache.CleanupInterval)
	})

	t.Run("environment variables override file", func(t *testing.T) {
		path := writeConfigFile(t, "config.yml", "cache:\n  maxEntries: 10\n")
		t.Setenv("LRUCACHED_CACHE_MAXENTRIES", "20")
		cfg, err := LoadAppConfig(path, DefaultEnvPrefix)
		require.NoError(t, err)
		require.Equal(t, 20, cfg.Cache.MaxEntries)
	})

	t.Run("invalid value", func(t *testing.T) {
		path := writeConfigFile(t, "config.yaml", "cache:\n  maxEntries: 0\n")
		_, err := LoadAppConfig(path, DefaultEnvPrefix)
		require.EqualError(t, err, "cache.maxEntries: should be >= 1")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAppConfig(filepath.Join(t.TempDir(), "absent.yaml"), DefaultEnvPrefix)
		require.Error(t, err)
	})
}
