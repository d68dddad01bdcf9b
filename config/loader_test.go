/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testListenerConfig struct {
	Address string
}

func (c *testListenerConfig) KeyPrefix() string {
	return "listener"
}

func (c *testListenerConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("address", ":80")
}

func (c *testListenerConfig) Set(dp DataProvider) error {
	var err error
	c.Address, err = dp.GetString("address")
	return err
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Run("defaults are used", func(t *testing.T) {
		cfg := &testListenerConfig{}
		require.NoError(t, NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, cfg))
		require.Equal(t, ":80", cfg.Address)
	})

	t.Run("values are read under key prefix", func(t *testing.T) {
		cfg := &testListenerConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"listener":{"address":":777"}}`), DataTypeJSON, cfg)
		require.NoError(t, err)
		require.Equal(t, ":777", cfg.Address)
	})

	t.Run("several configs share one provider", func(t *testing.T) {
		listenerCfg := &testListenerConfig{}
		storageCfg := &testStorageConfig{keyPrefix: "storage"}
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString("storage:\n  ttl: 5s\n"), DataTypeYAML, listenerCfg, storageCfg)
		require.NoError(t, err)
		require.Equal(t, ":80", listenerCfg.Address)
		require.Equal(t, 100, storageCfg.Capacity)
		require.Equal(t, 5*time.Second, storageCfg.TTL)
	})
}

func TestLoader_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("listener:\n  address: 127.0.0.1:9000\n"), 0o600))

	cfg := &testListenerConfig{}
	require.NoError(t, NewLoader(NewViperAdapter()).LoadFromFile(path, DataTypeYAML, cfg))
	require.Equal(t, "127.0.0.1:9000", cfg.Address)

	err := NewLoader(NewViperAdapter()).LoadFromFile(filepath.Join(t.TempDir(), "absent.yml"), DataTypeYAML, cfg)
	require.Error(t, err)
}

func TestLoader_EnvVars(t *testing.T) {
	t.Setenv("TESTAPP_LISTENER_ADDRESS", ":8443")

	cfg := &testListenerConfig{}
	require.NoError(t, NewDefaultLoader("testapp").Load(cfg))
	require.Equal(t, ":8443", cfg.Address)
}
