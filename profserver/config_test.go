/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package profserver

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-lrucache/config"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgDataType config.DataType
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name:        "yaml config",
			cfgDataType: config.DataTypeYAML,
			cfgData: `
profServer:
  enabled: true
  address: "0.0.0.0:6061"
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Enabled = true
				cfg.Address = "0.0.0.0:6061"
				return cfg
			},
		},
		{
			name:        "json config with defaults",
			cfgDataType: config.DataTypeJSON,
			cfgData:     `{"profServer": {"enabled": true}}`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Enabled = true
				return cfg
			},
		},
		{
			name:        "empty config",
			cfgDataType: config.DataTypeYAML,
			cfgData:     ``,
			expectedCfg: func() *Config { return NewDefaultConfig() },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), tt.cfgDataType, cfg)
			require.NoError(t, err)
			require.Equal(t, tt.expectedCfg(), cfg)
		})
	}
}

func TestConfig_YAMLUnmarshal(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, yaml.Unmarshal([]byte("enabled: true\n"), cfg))
	require.True(t, cfg.Enabled)
	require.Equal(t, defaultAddress, cfg.Address)
}

func TestWithKeyPrefix(t *testing.T) {
	cfgData := `
debug:
  enabled: true
  address: "127.0.0.1:7070"
`
	expectedCfg := NewDefaultConfig(WithKeyPrefix("debug"))
	expectedCfg.Enabled = true
	expectedCfg.Address = "127.0.0.1:7070"

	cfg := NewConfig(WithKeyPrefix("debug"))
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, expectedCfg, cfg)
}

func TestConfig_EmptyAddress(t *testing.T) {
	cfg := NewConfig()
	err := config.NewDefaultLoader("").LoadFromReader(
		bytes.NewBufferString("profServer:\n  address: \"\"\n"), config.DataTypeYAML, cfg)
	require.EqualError(t, err, `profServer.address: cannot be empty`)
}
