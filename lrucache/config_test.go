/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-lrucache/config"
)

func loadCacheConfig(t *testing.T, data string) (*Config, error) {
	t.Helper()
	cfg := NewConfig()
	err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
		bytes.NewBufferString(data), config.DataTypeYAML, cfg)
	return cfg, err
}

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadCacheConfig(t, "{}")
		require.NoError(t, err)
		require.Equal(t, NewDefaultConfig(), cfg)
	})

	t.Run("values", func(t *testing.T) {
		cfg, err := loadCacheConfig(t, "cache:\n  maxEntries: 50\n  defaultTTL: 90s\n  cleanupInterval: 0\n")
		require.NoError(t, err)
		require.Equal(t, 50, cfg.MaxEntries)
		require.Equal(t, config.TimeDuration(90*time.Second), cfg.DefaultTTL)
		require.Equal(t, config.TimeDuration(0), cfg.CleanupInterval)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			data    string
			wantErr string
		}{
			{data: "cache:\n  maxEntries: 0\n", wantErr: "cache.maxEntries: should be >= 1"},
			{data: "cache:\n  maxEntries: many\n", wantErr: "cache.maxEntries"},
			{data: "cache:\n  defaultTTL: -1s\n", wantErr: "cache.defaultTTL: should be >= 0"},
			{data: "cache:\n  defaultTTL: soon\n", wantErr: "cache.defaultTTL"},
			{data: "cache:\n  cleanupInterval: -1m\n", wantErr: "cache.cleanupInterval: should be >= 0"},
		}
		for _, tt := range tests {
			_, err := loadCacheConfig(t, tt.data)
			require.ErrorContains(t, err, tt.wantErr)
		}
	})
}

func TestNewWithConfig(t *testing.T) {
	clock := newFakeClock()
	cfg := &Config{MaxEntries: 2, DefaultTTL: config.TimeDuration(time.Second)}
	cache, err := NewWithConfig[string, int](cfg, nil, Options[string, int]{Clock: clock.Now, DefaultTTL: time.Hour})
	require.NoError(t, err)
	require.Equal(t, 2, cache.Capacity())
	require.Equal(t, time.Second, cache.DefaultTTL())

	require.NoError(t, cache.Put("k", 1))
	clock.Advance(time.Second)
	require.False(t, cache.Contains("k"))

	cache, err = NewWithConfig[string, int](NewDefaultConfig(), nil, Options[string, int]{})
	require.NoError(t, err)
	require.Equal(t, DefaultMaxEntries, cache.Capacity())
	require.Equal(t, NoExpiration, cache.DefaultTTL())
}
