/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type testStorageConfig struct {
	Capacity int
	TTL      time.Duration

	keyPrefix string
}

func (c *testStorageConfig) KeyPrefix() string {
	return c.keyPrefix
}

func (c *testStorageConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("capacity", 100)
	dp.SetDefault("ttl", "1m")
}

func (c *testStorageConfig) Set(dp DataProvider) (err error) {
	if c.Capacity, err = dp.GetInt("capacity"); err != nil {
		return err
	}
	if c.TTL, err = dp.GetDuration("ttl"); err != nil {
		return err
	}
	return nil
}

type testAppConfig struct {
	Primary   *testStorageConfig
	Secondary *testStorageConfig
	Missing   *testStorageConfig
	NilCfg    Config
	Verbose   bool
}

func (c *testAppConfig) SetProviderDefaults(dp DataProvider) {
	CallSetProviderDefaultsForFields(c, dp)
}

func (c *testAppConfig) Set(dp DataProvider) (err error) {
	if err = CallSetForFields(c, dp); err != nil {
		return err
	}
	c.Verbose, err = dp.GetBool("verbose")
	return err
}

const testAppConfigYAML = `
verbose: true
primary:
  capacity: 42
  ttl: 30s
`

func TestCallHelpers(t *testing.T) {
	cfg := &testAppConfig{
		Primary:   &testStorageConfig{keyPrefix: "primary"},
		Secondary: &testStorageConfig{keyPrefix: "secondary"},
	}
	l := NewDefaultLoader("")
	require.NoError(t, l.LoadFromReader(bytes.NewReader([]byte(testAppConfigYAML)), DataTypeYAML, cfg))

	require.Nil(t, cfg.Missing)
	require.Nil(t, cfg.NilCfg)
	require.True(t, cfg.Verbose)
	require.Equal(t, 42, cfg.Primary.Capacity)
	require.Equal(t, 30*time.Second, cfg.Primary.TTL)
	require.Equal(t, 100, cfg.Secondary.Capacity)
	require.Equal(t, time.Minute, cfg.Secondary.TTL)
}

func TestCallHelpers_ErrorContainsFullKey(t *testing.T) {
	cfg := &testAppConfig{Primary: &testStorageConfig{keyPrefix: "primary"}}
	l := NewDefaultLoader("")
	err := l.LoadFromReader(bytes.NewReader([]byte("primary:\n  capacity: lots\n")), DataTypeYAML, cfg)
	require.ErrorContains(t, err, "primary.capacity")
}

func TestViperAdapter_GetByteSize(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    ByteSize
		wantErr bool
	}{
		{name: "unset", value: nil, want: 0},
		{name: "integer", value: 1024, want: 1024},
		{name: "float", value: 2048.0, want: 2048},
		{name: "human-readable", value: "10M", want: 10 * 1024 * 1024},
		{name: "k8s suffix", value: "1Gi", want: 1024 * 1024 * 1024},
		{name: "negative", value: -1, wantErr: true},
		{name: "garbage", value: "ten megabytes", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			va := NewViperAdapter()
			if tt.value != nil {
				va.Set("size", tt.value)
			}
			got, err := va.GetByteSize("size")
			if tt.wantErr {
				require.ErrorContains(t, err, "size")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestViperAdapter_GetStringFromSet(t *testing.T) {
	va := NewViperAdapter()
	va.Set("format", "JSON")

	got, err := va.GetStringFromSet("format", []string{"json", "text"}, true)
	require.NoError(t, err)
	require.Equal(t, "JSON", got)

	_, err = va.GetStringFromSet("format", []string{"json", "text"}, false)
	require.ErrorContains(t, err, "format")
}

func TestViperAdapter_GetStringSlice(t *testing.T) {
	va := NewViperAdapter()
	va.Set("list", []interface{}{"/healthz", "/metrics"})
	va.Set("csv", "/healthz, /metrics")
	va.Set("empty", "")

	for _, key := range []string{"list", "csv"} {
		got, err := va.GetStringSlice(key)
		require.NoError(t, err)
		require.Equal(t, []string{"/healthz", "/metrics"}, got)
	}
	got, err := va.GetStringSlice("empty")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestKeyPrefixedDataProvider(t *testing.T) {
	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewReader([]byte(`{"a":{"b":{"c":1,"d":"x"}},"e":2}`)), DataTypeJSON))

	kp := NewKeyPrefixedDataProvider(va, "a.b")
	v, err := kp.GetInt("c")
	require.NoError(t, err)
	require.Equal(t, 1, v)
	require.True(t, kp.IsSet("d"))
	require.False(t, kp.IsSet("e"))
	require.Equal(t, map[string]interface{}{"c": float64(1), "d": "x"}, kp.AllSettings())
	require.EqualError(t, kp.WrapKeyErr("c", errNotInteger), "a.b.c: not an integer")

	kp.Set("c", 5)
	v, err = va.GetInt("a.b.c")
	require.NoError(t, err)
	require.Equal(t, 5, v)
}

func TestUnmarshalKeyWithTextUnmarshalerHook(t *testing.T) {
	type limits struct {
		MaxBody  ByteSize     `mapstructure:"maxBody"`
		Interval TimeDuration `mapstructure:"interval"`
		Timeout  time.Duration
	}
	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewReader(
		[]byte(`{"app":{"limits":{"maxBody":"4K","interval":"30s","timeout":"2s"}}}`)), DataTypeJSON))

	var got limits
	require.NoError(t, NewKeyPrefixedDataProvider(va, "app").UnmarshalKey("limits", &got, WithTextUnmarshalerHook()))
	require.Equal(t, limits{MaxBody: 4096, Interval: TimeDuration(30 * time.Second), Timeout: 2 * time.Second}, got)
}

func TestCustomTypes(t *testing.T) {
	type sample struct {
		Size     ByteSize     `json:"size" yaml:"size"`
		Interval TimeDuration `json:"interval" yaml:"interval"`
	}

	var fromJSON sample
	require.NoError(t, json.Unmarshal([]byte(`{"size":"1K","interval":"90s"}`), &fromJSON))
	require.Equal(t, sample{Size: 1024, Interval: TimeDuration(90 * time.Second)}, fromJSON)

	var fromNumbers sample
	require.NoError(t, json.Unmarshal([]byte(`{"size":512,"interval":1000}`), &fromNumbers))
	require.Equal(t, sample{Size: 512, Interval: TimeDuration(time.Microsecond)}, fromNumbers)

	var fromYAML sample
	require.NoError(t, yaml.Unmarshal([]byte("size: 2Mi\ninterval: 1h\n"), &fromYAML))
	require.Equal(t, sample{Size: 2 * 1024 * 1024, Interval: TimeDuration(time.Hour)}, fromYAML)

	out, err := yaml.Marshal(fromYAML)
	require.NoError(t, err)
	require.Equal(t, "size: 2M\ninterval: 1h0m0s\n", string(out))

	var bad sample
	require.Error(t, json.Unmarshal([]byte(`{"size":-5}`), &bad))
	require.Error(t, yaml.Unmarshal([]byte("interval: soon\n"), &bad))
}
