/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"time"

	"github.com/acronis/go-lrucache/config"
	"github.com/acronis/go-lrucache/httpserver/middleware"
)

const cfgDefaultKeyPrefix = "server"

const (
	cfgKeyServerAddress              = "address"
	cfgKeyServerTimeoutsWrite        = "timeouts.write"
	cfgKeyServerTimeoutsRead         = "timeouts.read"
	cfgKeyServerTimeoutsReadHeader   = "timeouts.readHeader"
	cfgKeyServerTimeoutsIdle         = "timeouts.idle"
	cfgKeyServerTimeoutsShutdown     = "timeouts.shutdown"
	cfgKeyServerLimitsMaxBodySize    = "limits.maxBodySize"
	cfgKeyServerRateLimitRPS         = "rateLimit.rps"
	cfgKeyServerRateLimitBurst       = "rateLimit.burst"
	cfgKeyServerRateLimitByClientIP  = "rateLimit.byClientIP"
	cfgKeyServerRateLimitAlg         = "rateLimit.alg"
	cfgKeyServerLogRequestStart      = "log.requestStart"
	cfgKeyServerLogExcludedEndpoints = "log.excludedEndpoints"
)

const (
	defaultServerAddress            = ":8080"
	defaultServerTimeoutsWrite      = time.Minute
	defaultServerTimeoutsRead       = time.Second * 15
	defaultServerTimeoutsReadHeader = time.Second * 10
	defaultServerTimeoutsIdle       = time.Minute
	defaultServerTimeoutsShutdown   = time.Second * 5
	defaultServerLimitsMaxBodySize  = config.ByteSize(1024 * 1024)
)

// Config represents a set of configuration parameters for HTTPServer.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	Address   string          `mapstructure:"address" yaml:"address" json:"address"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts" yaml:"timeouts" json:"timeouts"`
	Limits    LimitsConfig    `mapstructure:"limits" yaml:"limits" json:"limits"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit" yaml:"rateLimit" json:"rateLimit"`
	Log       LogConfig       `mapstructure:"log" yaml:"log" json:"log"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

func makeConfigOptions(options []ConfigOption) configOptions {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	return &Config{keyPrefix: makeConfigOptions(options).keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	return &Config{
		keyPrefix: makeConfigOptions(options).keyPrefix,
		Address:   defaultServerAddress,
		Timeouts: TimeoutsConfig{
			Write:      config.TimeDuration(defaultServerTimeoutsWrite),
			Read:       config.TimeDuration(defaultServerTimeoutsRead),
			ReadHeader: config.TimeDuration(defaultServerTimeoutsReadHeader),
			Idle:       config.TimeDuration(defaultServerTimeoutsIdle),
			Shutdown:   config.TimeDuration(defaultServerTimeoutsShutdown),
		},
		Limits:    LimitsConfig{MaxBodySize: defaultServerLimitsMaxBodySize},
		RateLimit: RateLimitConfig{Alg: middleware.RateLimitAlgTokenBucket},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for HTTPServer in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyServerAddress, defaultServerAddress)

	dp.SetDefault(cfgKeyServerTimeoutsWrite, defaultServerTimeoutsWrite.String())
	dp.SetDefault(cfgKeyServerTimeoutsRead, defaultServerTimeoutsRead.String())
	dp.SetDefault(cfgKeyServerTimeoutsReadHeader, defaultServerTimeoutsReadHeader.String())
	dp.SetDefault(cfgKeyServerTimeoutsIdle, defaultServerTimeoutsIdle.String())
	dp.SetDefault(cfgKeyServerTimeoutsShutdown, defaultServerTimeoutsShutdown.String())

	dp.SetDefault(cfgKeyServerLimitsMaxBodySize, defaultServerLimitsMaxBodySize.String())

	dp.SetDefault(cfgKeyServerRateLimitRPS, 0)
	dp.SetDefault(cfgKeyServerRateLimitBurst, 0)
	dp.SetDefault(cfgKeyServerRateLimitByClientIP, false)
	dp.SetDefault(cfgKeyServerRateLimitAlg, string(middleware.RateLimitAlgTokenBucket))

	dp.SetDefault(cfgKeyServerLogRequestStart, false)
}

// Set sets HTTPServer configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Address, err = dp.GetString(cfgKeyServerAddress); err != nil {
		return err
	}
	if c.Address == "" {
		return dp.WrapKeyErr(cfgKeyServerAddress, fmt.Errorf("should be set"))
	}
	if err = c.Timeouts.Set(dp); err != nil {
		return err
	}
	if err = c.Limits.Set(dp); err != nil {
		return err
	}
	if err = c.RateLimit.Set(dp); err != nil {
		return err
	}
	return c.Log.Set(dp)
}

// TimeoutsConfig represents a set of configuration parameters for HTTPServer relating to timeouts.
type TimeoutsConfig struct {
	Write      config.TimeDuration `mapstructure:"write" yaml:"write" json:"write"`
	Read       config.TimeDuration `mapstructure:"read" yaml:"read" json:"read"`
	ReadHeader config.TimeDuration `mapstructure:"readHeader" yaml:"readHeader" json:"readHeader"`
	Idle       config.TimeDuration `mapstructure:"idle" yaml:"idle" json:"idle"`
	Shutdown   config.TimeDuration `mapstructure:"shutdown" yaml:"shutdown" json:"shutdown"`
}

// Set sets timeout server configuration values from config.DataProvider.
func (t *TimeoutsConfig) Set(dp config.DataProvider) error {
	for _, item := range []struct {
		key  string
		dest *config.TimeDuration
	}{
		{cfgKeyServerTimeoutsWrite, &t.Write},
		{cfgKeyServerTimeoutsRead, &t.Read},
		{cfgKeyServerTimeoutsReadHeader, &t.ReadHeader},
		{cfgKeyServerTimeoutsIdle, &t.Idle},
		{cfgKeyServerTimeoutsShutdown, &t.Shutdown},
	} {
		dur, err := dp.GetDuration(item.key)
		if err != nil {
			return err
		}
		if dur < 0 {
			return dp.WrapKeyErr(item.key, fmt.Errorf("should be >= 0"))
		}
		*item.dest = config.TimeDuration(dur)
	}
	return nil
}

// LimitsConfig represents a set of configuration parameters for HTTPServer relating to limits.
type LimitsConfig struct {
	// MaxBodySize is the maximum size of the request body. Zero means no limit.
	MaxBodySize config.ByteSize `mapstructure:"maxBodySize" yaml:"maxBodySize" json:"maxBodySize"`
}

// Set sets limit server configuration values from config.DataProvider.
func (l *LimitsConfig) Set(dp config.DataProvider) error {
	var err error
	l.MaxBodySize, err = dp.GetByteSize(cfgKeyServerLimitsMaxBodySize)
	return err
}

// RateLimitConfig represents a set of configuration parameters for limiting the rate of API requests.
// Zero RPS disables rate limiting.
type RateLimitConfig struct {
	RPS        float64 `mapstructure:"rps" yaml:"rps" json:"rps"`
	Burst      int     `mapstructure:"burst" yaml:"burst" json:"burst"`
	ByClientIP bool    `mapstructure:"byClientIP" yaml:"byClientIP" json:"byClientIP"`

	// Alg is one of "tokenBucket" (default), "leakyBucket" or "slidingWindow".
	Alg middleware.RateLimitAlg `mapstructure:"alg" yaml:"alg" json:"alg"`
}

// Enabled reports whether the rate limiting is turned on.
func (r *RateLimitConfig) Enabled() bool {
	return r.RPS > 0
}

// Set sets rate limiting configuration values from config.DataProvider.
func (r *RateLimitConfig) Set(dp config.DataProvider) error {
	var err error
	if r.RPS, err = dp.GetFloat64(cfgKeyServerRateLimitRPS); err != nil {
		return err
	}
	if r.RPS < 0 {
		return dp.WrapKeyErr(cfgKeyServerRateLimitRPS, fmt.Errorf("should be >= 0"))
	}
	if r.Burst, err = dp.GetInt(cfgKeyServerRateLimitBurst); err != nil {
		return err
	}
	if r.Burst < 0 {
		return dp.WrapKeyErr(cfgKeyServerRateLimitBurst, fmt.Errorf("should be >= 0"))
	}
	if r.ByClientIP, err = dp.GetBool(cfgKeyServerRateLimitByClientIP); err != nil {
		return err
	}
	alg, err := dp.GetStringFromSet(cfgKeyServerRateLimitAlg, availableRateLimitAlgs, false)
	if err != nil {
		return err
	}
	r.Alg = middleware.RateLimitAlg(alg)
	return nil
}

var availableRateLimitAlgs = []string{
	string(middleware.RateLimitAlgTokenBucket),
	string(middleware.RateLimitAlgLeakyBucket),
	string(middleware.RateLimitAlgSlidingWindow),
}

// LogConfig represents a set of configuration parameters for HTTPServer relating to logging.
type LogConfig struct {
	RequestStart      bool     `mapstructure:"requestStart" yaml:"requestStart" json:"requestStart"`
	ExcludedEndpoints []string `mapstructure:"excludedEndpoints" yaml:"excludedEndpoints" json:"excludedEndpoints"`
}

// Set sets log server configuration values from config.DataProvider.
func (l *LogConfig) Set(dp config.DataProvider) error {
	var err error
	if l.RequestStart, err = dp.GetBool(cfgKeyServerLogRequestStart); err != nil {
		return err
	}
	l.ExcludedEndpoints, err = dp.GetStringSlice(cfgKeyServerLogExcludedEndpoints)
	return err
}
