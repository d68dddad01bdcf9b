/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DataType is a format of configuration data.
type DataType string

const (
	DataTypeYAML DataType = "yaml"
	DataTypeJSON DataType = "json"
)

// Source is where configuration values come from.
// Environment variables take precedence over values read from a file or reader.
type Source interface {
	UseEnvVars(prefix string)
	SetFromFile(path string, dataType DataType) error
	SetFromReader(reader io.Reader, dataType DataType) error
}

// ValueReader returns typed values by dotted keys.
// Errors returned by the getters already name the key.
type ValueReader interface {
	IsSet(key string) bool
	Get(key string) interface{}
	GetBool(key string) (bool, error)
	GetInt(key string) (int, error)
	GetFloat64(key string) (float64, error)
	GetString(key string) (string, error)
	GetStringSlice(key string) ([]string, error)
	GetStringFromSet(key string, set []string, ignoreCase bool) (string, error)
	GetDuration(key string) (time.Duration, error)
	GetByteSize(key string) (ByteSize, error)
	AllSettings() map[string]interface{}
	UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error
}

// DataProvider is what Config implementations read from and write defaults to.
type DataProvider interface {
	Source
	ValueReader

	Set(key string, value interface{})
	SetDefault(key string, value interface{})

	WrapKeyErr(key string, err error) error
}

// DecoderConfigOption tunes the decoder used by UnmarshalKey.
type DecoderConfigOption func(*mapstructure.DecoderConfig)

// WithTextUnmarshalerHook lets UnmarshalKey decode ByteSize, TimeDuration
// and other encoding.TextUnmarshaler fields from strings.
func WithTextUnmarshalerHook() DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		)
	}
}

// WrapKeyErrIfNeeded is WrapKeyErr that passes nil through.
func WrapKeyErrIfNeeded(key string, err error) error {
	if err == nil {
		return nil
	}
	return WrapKeyErr(key, err)
}

// WrapKeyErr prefixes err with the configuration key.
func WrapKeyErr(key string, err error) error {
	return fmt.Errorf("%s: %w", key, err)
}
