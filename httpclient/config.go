/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"time"

	"github.com/acronis/go-lrucache/config"
	"github.com/acronis/go-lrucache/retry"
)

const cfgDefaultKeyPrefix = "client"

// Retry strategies.
const (
	RetryPolicyExponential = "exponential"
	RetryPolicyConstant    = "constant"
)

const (
	cfgKeyTimeout                                 = "timeout"
	cfgKeyRetriesEnabled                          = "retries.enabled"
	cfgKeyRetriesMax                              = "retries.maxAttempts"
	cfgKeyRetriesPolicyStrategy                   = "retries.policy.strategy"
	cfgKeyRetriesPolicyExponentialInitialInterval = "retries.policy.exponentialBackoffInitialInterval"
	cfgKeyRetriesPolicyExponentialMultiplier      = "retries.policy.exponentialBackoffMultiplier"
	cfgKeyRetriesPolicyConstantInterval           = "retries.policy.constantBackoffInterval"
	cfgKeyLogEnabled                              = "log.enabled"
	cfgKeyLogMode                                 = "log.mode"
	cfgKeyLogSlowRequestThreshold                 = "log.slowRequestThreshold"
)

// Default configuration values.
const (
	DefaultClientTimeout        = 10 * time.Second
	DefaultClientMaxRetries     = 3
	DefaultConstantInterval     = 200 * time.Millisecond
	DefaultSlowRequestThreshold = time.Second
)

// Config represents options for HTTP client configuration.
type Config struct {
	// Timeout is the maximum time to wait for a request including all retries.
	Timeout config.TimeDuration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`

	Retries RetriesConfig `mapstructure:"retries" yaml:"retries" json:"retries"`
	Log     LogConfig     `mapstructure:"log" yaml:"log" json:"log"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config with the "client" key prefix.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix(cfgDefaultKeyPrefix)
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Timeout: config.TimeDuration(DefaultClientTimeout),
		Retries: RetriesConfig{
			Enabled:     true,
			MaxAttempts: DefaultClientMaxRetries,
			Policy: PolicyConfig{
				Strategy:                          RetryPolicyExponential,
				ExponentialBackoffInitialInterval: config.TimeDuration(DefaultExponentialBackoffInitialInterval),
				ExponentialBackoffMultiplier:      DefaultExponentialBackoffMultiplier,
			},
		},
		keyPrefix: cfgDefaultKeyPrefix,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTimeout, DefaultClientTimeout.String())
	dp.SetDefault(cfgKeyRetriesEnabled, true)
	dp.SetDefault(cfgKeyRetriesMax, DefaultClientMaxRetries)
	dp.SetDefault(cfgKeyRetriesPolicyStrategy, RetryPolicyExponential)
	dp.SetDefault(cfgKeyRetriesPolicyExponentialInitialInterval, DefaultExponentialBackoffInitialInterval.String())
	dp.SetDefault(cfgKeyRetriesPolicyExponentialMultiplier, DefaultExponentialBackoffMultiplier)
	dp.SetDefault(cfgKeyRetriesPolicyConstantInterval, DefaultConstantInterval.String())
	dp.SetDefault(cfgKeyLogEnabled, false)
	dp.SetDefault(cfgKeyLogMode, string(LoggingModeFailed))
	dp.SetDefault(cfgKeyLogSlowRequestThreshold, DefaultSlowRequestThreshold.String())
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	timeout, err := dp.GetDuration(cfgKeyTimeout)
	if err != nil {
		return err
	}
	if timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, fmt.Errorf("should be >= 0"))
	}
	c.Timeout = config.TimeDuration(timeout)

	if err = c.Retries.Set(dp); err != nil {
		return err
	}
	return c.Log.Set(dp)
}

// RetriesConfig represents configuration options for HTTP client retries policy.
type RetriesConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// MaxAttempts is the maximum number of retry attempts (the first request is not counted).
	MaxAttempts int `mapstructure:"maxAttempts" yaml:"maxAttempts" json:"maxAttempts"`

	Policy PolicyConfig `mapstructure:"policy" yaml:"policy" json:"policy"`
}

// Set sets retries configuration values from config.DataProvider.
func (c *RetriesConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyRetriesEnabled); err != nil {
		return err
	}
	if !c.Enabled {
		return nil
	}
	if c.MaxAttempts, err = dp.GetInt(cfgKeyRetriesMax); err != nil {
		return err
	}
	if c.MaxAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyRetriesMax, fmt.Errorf("should be >= 0"))
	}
	return c.Policy.Set(dp)
}

// GetPolicy returns a retry policy based on the configured strategy.
func (c *RetriesConfig) GetPolicy() retry.Policy {
	if c.Policy.Strategy == RetryPolicyConstant {
		return retry.NewConstantBackoffPolicy(time.Duration(c.Policy.ConstantBackoffInterval), 0)
	}
	return retry.ExponentialBackoffPolicy{
		InitialInterval: time.Duration(c.Policy.ExponentialBackoffInitialInterval),
		Multiplier:      c.Policy.ExponentialBackoffMultiplier,
	}
}

// PolicyConfig represents configuration options for policy retry.
type PolicyConfig struct {
	// Strategy is one of [exponential, constant].
	Strategy string `mapstructure:"strategy" yaml:"strategy" json:"strategy"`

	ExponentialBackoffInitialInterval config.TimeDuration `mapstructure:"exponentialBackoffInitialInterval" yaml:"exponentialBackoffInitialInterval" json:"exponentialBackoffInitialInterval"` //nolint:lll
	ExponentialBackoffMultiplier      float64             `mapstructure:"exponentialBackoffMultiplier" yaml:"exponentialBackoffMultiplier" json:"exponentialBackoffMultiplier"`                //nolint:lll
	ConstantBackoffInterval           config.TimeDuration `mapstructure:"constantBackoffInterval" yaml:"constantBackoffInterval" json:"constantBackoffInterval"`                               //nolint:lll
}

// Set sets retry policy configuration values from config.DataProvider.
func (c *PolicyConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Strategy, err = dp.GetStringFromSet(
		cfgKeyRetriesPolicyStrategy, []string{RetryPolicyExponential, RetryPolicyConstant}, false,
	); err != nil {
		return err
	}

	var interval time.Duration
	switch c.Strategy {
	case RetryPolicyExponential:
		if interval, err = dp.GetDuration(cfgKeyRetriesPolicyExponentialInitialInterval); err != nil {
			return err
		}
		if interval < 0 {
			return dp.WrapKeyErr(cfgKeyRetriesPolicyExponentialInitialInterval, fmt.Errorf("should be >= 0"))
		}
		c.ExponentialBackoffInitialInterval = config.TimeDuration(interval)

		if c.ExponentialBackoffMultiplier, err = dp.GetFloat64(cfgKeyRetriesPolicyExponentialMultiplier); err != nil {
			return err
		}
		if c.ExponentialBackoffMultiplier <= 1 {
			return dp.WrapKeyErr(cfgKeyRetriesPolicyExponentialMultiplier, fmt.Errorf("should be > 1"))
		}
	case RetryPolicyConstant:
		if interval, err = dp.GetDuration(cfgKeyRetriesPolicyConstantInterval); err != nil {
			return err
		}
		if interval < 0 {
			return dp.WrapKeyErr(cfgKeyRetriesPolicyConstantInterval, fmt.Errorf("should be >= 0"))
		}
		c.ConstantBackoffInterval = config.TimeDuration(interval)
	}
	return nil
}

// LogConfig represents configuration options for HTTP client logs.
type LogConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Mode is one of [none, all, failed].
	Mode string `mapstructure:"mode" yaml:"mode" json:"mode"`

	// SlowRequestThreshold makes successful requests taking longer than it to be logged in the "failed" mode.
	SlowRequestThreshold config.TimeDuration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold" json:"slowRequestThreshold"` //nolint:lll
}

// Set sets logging configuration values from config.DataProvider.
func (c *LogConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyLogEnabled); err != nil {
		return err
	}
	if !c.Enabled {
		return nil
	}
	if c.Mode, err = dp.GetStringFromSet(cfgKeyLogMode, []string{
		string(LoggingModeNone), string(LoggingModeAll), string(LoggingModeFailed),
	}, false); err != nil {
		return err
	}
	threshold, err := dp.GetDuration(cfgKeyLogSlowRequestThreshold)
	if err != nil {
		return err
	}
	if threshold < 0 {
		return dp.WrapKeyErr(cfgKeyLogSlowRequestThreshold, fmt.Errorf("should be >= 0"))
	}
	c.SlowRequestThreshold = config.TimeDuration(threshold)
	return nil
}
