/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"fmt"
	"time"

	"github.com/acronis/go-lrucache/config"
)

const cfgDefaultKeyPrefix = "cache"

const (
	cfgKeyMaxEntries      = "maxEntries"
	cfgKeyDefaultTTL      = "defaultTTL"
	cfgKeyCleanupInterval = "cleanupInterval"
)

// Default configuration values.
const (
	DefaultMaxEntries      = 1000
	DefaultCleanupInterval = time.Minute
)

// Config represents a set of configuration parameters for the cache.
// Zero DefaultTTL means that entries put without explicit TTL never expire.
// Zero CleanupInterval disables the periodic cleanup of expired entries.
type Config struct {
	MaxEntries      int                 `mapstructure:"maxEntries" yaml:"maxEntries" json:"maxEntries"`
	DefaultTTL      config.TimeDuration `mapstructure:"defaultTTL" yaml:"defaultTTL" json:"defaultTTL"`
	CleanupInterval config.TimeDuration `mapstructure:"cleanupInterval" yaml:"cleanupInterval" json:"cleanupInterval"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config with the "cache" key prefix.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix}
}

// NewConfigWithKeyPrefix creates a new instance of the Config with the given key prefix.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		MaxEntries:      DefaultMaxEntries,
		CleanupInterval: config.TimeDuration(DefaultCleanupInterval),
		keyPrefix:       cfgDefaultKeyPrefix,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxEntries, DefaultMaxEntries)
	dp.SetDefault(cfgKeyDefaultTTL, "0s")
	dp.SetDefault(cfgKeyCleanupInterval, DefaultCleanupInterval.String())
}

// Set sets cache configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.MaxEntries, err = dp.GetInt(cfgKeyMaxEntries); err != nil {
		return err
	}
	if c.MaxEntries < 1 {
		return dp.WrapKeyErr(cfgKeyMaxEntries, fmt.Errorf("should be >= 1"))
	}

	var dur time.Duration
	if dur, err = dp.GetDuration(cfgKeyDefaultTTL); err != nil {
		return err
	}
	if dur < 0 {
		return dp.WrapKeyErr(cfgKeyDefaultTTL, fmt.Errorf("should be >= 0"))
	}
	c.DefaultTTL = config.TimeDuration(dur)

	if dur, err = dp.GetDuration(cfgKeyCleanupInterval); err != nil {
		return err
	}
	if dur < 0 {
		return dp.WrapKeyErr(cfgKeyCleanupInterval, fmt.Errorf("should be >= 0"))
	}
	c.CleanupInterval = config.TimeDuration(dur)
	return nil
}

// NewWithConfig creates a new LRUCache sized and configured by cfg.
// Options other than DefaultTTL (clock, eviction callback) are taken from opts.
func NewWithConfig[K comparable, V any](
	cfg *Config, metricsCollector MetricsCollector, opts Options[K, V],
) (*LRUCache[K, V], error) {
	opts.DefaultTTL = time.Duration(cfg.DefaultTTL)
	return NewWithOpts[K, V](cfg.MaxEntries, metricsCollector, opts)
}
