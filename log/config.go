/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"fmt"
	"strings"

	"github.com/acronis/go-lrucache/config"
)

const cfgDefaultKeyPrefix = "log"

// Keys are relative to Config.KeyPrefix.
const (
	cfgKeyLevel     = "level"
	cfgKeyFormat    = "format"
	cfgKeyOutput    = "output"
	cfgKeyNoColor   = "nocolor"
	cfgKeyAddCaller = "addCaller"

	cfgKeyFilePath               = "file.path"
	cfgKeyRotationCompress       = "file.rotation.compress"
	cfgKeyRotationMaxSize        = "file.rotation.maxSize"
	cfgKeyRotationMaxBackups     = "file.rotation.maxBackups"
	cfgKeyRotationMaxAgeDays     = "file.rotation.maxAgeDays"
	cfgKeyRotationLocalTimeNames = "file.rotation.localTimeInNames"

	cfgKeyErrorNoVerbose     = "error.noVerbose"
	cfgKeyErrorVerboseSuffix = "error.verboseSuffix"
)

const (
	DefaultFileRotationMaxSize    = config.ByteSize(250 * 1024 * 1024)
	MinFileRotationMaxSize        = config.ByteSize(1024 * 1024)
	DefaultFileRotationMaxBackups = 10
	MinFileRotationMaxBackups     = 1

	defaultErrorVerboseSuffix = "_verbose"
)

// Config is the "log" section of the daemon configuration.
type Config struct {
	Level     Level            `mapstructure:"level" yaml:"level" json:"level"`
	Format    Format           `mapstructure:"format" yaml:"format" json:"format"`
	Output    Output           `mapstructure:"output" yaml:"output" json:"output"`
	NoColor   bool             `mapstructure:"nocolor" yaml:"nocolor" json:"nocolor"`
	AddCaller bool             `mapstructure:"addCaller" yaml:"addCaller" json:"addCaller"`
	File      FileOutputConfig `mapstructure:"file" yaml:"file" json:"file"`
	Error     ErrorConfig      `mapstructure:"error" yaml:"error" json:"error"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Level is the minimal level of messages that are written.
type Level string

const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

type Output string

const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

// FileOutputConfig is used when Output is OutputFile.
// {{starttime}} and {{pid}} in Path are expanded when the logger is created.
type FileOutputConfig struct {
	Path     string             `mapstructure:"path" yaml:"path" json:"path"`
	Rotation FileRotationConfig `mapstructure:"rotation" yaml:"rotation" json:"rotation"`
}

// FileRotationConfig is passed to lumberjack. Zero MaxAgeDays keeps old files forever.
type FileRotationConfig struct {
	Compress         bool            `mapstructure:"compress" yaml:"compress" json:"compress"`
	MaxSize          config.ByteSize `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	MaxBackups       int             `mapstructure:"maxBackups" yaml:"maxBackups" json:"maxBackups"`
	MaxAgeDays       int             `mapstructure:"maxAgeDays" yaml:"maxAgeDays" json:"maxAgeDays"`
	LocalTimeInNames bool            `mapstructure:"localTimeInNames" yaml:"localTimeInNames" json:"localTimeInNames"`
}

// ErrorConfig controls the extra "error"+VerboseSuffix field with the %+v form of logged errors.
// The field is omitted when NoVerbose is set or %+v adds nothing to err.Error().
type ErrorConfig struct {
	NoVerbose     bool   `mapstructure:"noVerbose" yaml:"noVerbose" json:"noVerbose"`
	VerboseSuffix string `mapstructure:"verboseSuffix" yaml:"verboseSuffix" json:"verboseSuffix"`
}

// ConfigOption customizes NewConfig and NewDefaultConfig.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix makes the Config read its keys under keyPrefix instead of "log".
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

// NewConfig returns an empty Config to be filled by config.Loader.
func NewConfig(options ...ConfigOption) *Config {
	return &Config{keyPrefix: makeConfigOptions(options).keyPrefix}
}

// NewDefaultConfig returns a Config with the same values the loader would set for empty input.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Level = LevelInfo
	cfg.Format = FormatJSON
	cfg.Output = OutputStdout
	cfg.File.Rotation.MaxSize = DefaultFileRotationMaxSize
	cfg.File.Rotation.MaxBackups = DefaultFileRotationMaxBackups
	cfg.Error.VerboseSuffix = defaultErrorVerboseSuffix
	return cfg
}

func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyLevel, string(LevelInfo))
	dp.SetDefault(cfgKeyFormat, string(FormatJSON))
	dp.SetDefault(cfgKeyOutput, string(OutputStdout))
	dp.SetDefault(cfgKeyRotationMaxSize, DefaultFileRotationMaxSize.String())
	dp.SetDefault(cfgKeyRotationMaxBackups, DefaultFileRotationMaxBackups)
	dp.SetDefault(cfgKeyErrorVerboseSuffix, defaultErrorVerboseSuffix)
}

// getEnum reads a case-insensitive value that must be one of allowed.
func getEnum[T ~string](dp config.DataProvider, key string, allowed ...T) (T, error) {
	set := make([]string, len(allowed))
	for i := range allowed {
		set[i] = string(allowed[i])
	}
	str, err := dp.GetStringFromSet(key, set, true)
	return T(strings.ToLower(str)), err
}

func (c *Config) Set(dp config.DataProvider) (err error) {
	if c.Level, err = getEnum(dp, cfgKeyLevel, LevelError, LevelWarn, LevelInfo, LevelDebug); err != nil {
		return err
	}
	if c.Format, err = getEnum(dp, cfgKeyFormat, FormatJSON, FormatText); err != nil {
		return err
	}
	if c.Output, err = getEnum(dp, cfgKeyOutput, OutputStdout, OutputStderr, OutputFile); err != nil {
		return err
	}
	for key, dst := range map[string]*bool{
		cfgKeyNoColor:        &c.NoColor,
		cfgKeyAddCaller:      &c.AddCaller,
		cfgKeyErrorNoVerbose: &c.Error.NoVerbose,
	} {
		if *dst, err = dp.GetBool(key); err != nil {
			return err
		}
	}
	if c.Error.VerboseSuffix, err = dp.GetString(cfgKeyErrorVerboseSuffix); err != nil {
		return err
	}
	return c.setFile(dp)
}

func (c *Config) setFile(dp config.DataProvider) (err error) {
	if c.File.Path, err = dp.GetString(cfgKeyFilePath); err != nil {
		return err
	}
	if c.Output == OutputFile && c.File.Path == "" {
		return dp.WrapKeyErr(cfgKeyFilePath, fmt.Errorf("required for %q output", OutputFile))
	}

	rot := &c.File.Rotation
	if rot.MaxSize, err = dp.GetByteSize(cfgKeyRotationMaxSize); err != nil {
		return err
	}
	if rot.MaxSize < MinFileRotationMaxSize {
		return dp.WrapKeyErr(cfgKeyRotationMaxSize, fmt.Errorf("should be >= %s", MinFileRotationMaxSize))
	}
	if rot.MaxBackups, err = getIntAtLeast(dp, cfgKeyRotationMaxBackups, MinFileRotationMaxBackups); err != nil {
		return err
	}
	if rot.MaxAgeDays, err = getIntAtLeast(dp, cfgKeyRotationMaxAgeDays, 0); err != nil {
		return err
	}
	if rot.Compress, err = dp.GetBool(cfgKeyRotationCompress); err != nil {
		return err
	}
	rot.LocalTimeInNames, err = dp.GetBool(cfgKeyRotationLocalTimeNames)
	return err
}

func getIntAtLeast(dp config.DataProvider, key string, low int) (int, error) {
	v, err := dp.GetInt(key)
	if err != nil {
		return 0, err
	}
	if v < low {
		return 0, dp.WrapKeyErr(key, fmt.Errorf("should be >= %d", low))
	}
	return v, nil
}
