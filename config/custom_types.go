/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v3"
)

// ByteSize is a size in bytes that may be written either as an integer or as a human-readable string ("64M", "1Gi").
type ByteSize uint64

// UnmarshalJSON implements json.Unmarshaler.
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	num, err := parseNonNegativeInt(s)
	if err == nil {
		*b = ByteSize(num)
		return nil
	}
	if err != errNotInteger {
		return err
	}
	bs, err := parseByteSizeFromString(s)
	if err != nil {
		return err
	}
	*b = bs
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid byte size format: %v", value.Value)
	}
	return b.UnmarshalJSON([]byte(value.Value))
}

// UnmarshalText implements encoding.TextUnmarshaler (used by mapstructure.TextUnmarshallerHookFunc).
func (b *ByteSize) UnmarshalText(text []byte) error {
	return b.UnmarshalJSON(text)
}

func (b ByteSize) String() string {
	return bytefmt.ByteSize(uint64(b))
}

// MarshalJSON implements json.Marshaler.
func (b ByteSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// MarshalYAML implements yaml.Marshaler.
func (b ByteSize) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

func parseByteSizeFromString(s string) (ByteSize, error) {
	v := strings.TrimSpace(s)
	// k8s-style binary suffixes ("Ki", "Mi", ...) mean the same as bytefmt's "K", "M", ...
	if len(v) > 2 && strings.HasSuffix(v, "i") && strings.ContainsAny(v[len(v)-2:len(v)-1], "KMGTPE") {
		v = v[:len(v)-1]
	}
	num, err := bytefmt.ToBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size format (%s): %w", s, err)
	}
	return ByteSize(num), nil
}

// TimeDuration is a time.Duration that may be written either as an integer (nanoseconds)
// or as a human-readable string ("1m30s").
type TimeDuration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *TimeDuration) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	num, err := parseNonNegativeInt(s)
	if err == nil {
		*d = TimeDuration(num)
		return nil
	}
	if err != errNotInteger {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid time duration format (%s): %w", s, err)
	}
	*d = TimeDuration(dur)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid time duration format: %v", value.Value)
	}
	return d.UnmarshalJSON([]byte(value.Value))
}

// UnmarshalText implements encoding.TextUnmarshaler (used by mapstructure.TextUnmarshallerHookFunc).
func (d *TimeDuration) UnmarshalText(text []byte) error {
	return d.UnmarshalJSON(text)
}

func (d TimeDuration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON implements json.Marshaler.
func (d TimeDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// MarshalYAML implements yaml.Marshaler.
func (d TimeDuration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

var errNotInteger = fmt.Errorf("not an integer")

func parseNonNegativeInt(s string) (int64, error) {
	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errNotInteger
	}
	if num < 0 {
		return 0, fmt.Errorf("negative value is not allowed: %d", num)
	}
	return num, nil
}
