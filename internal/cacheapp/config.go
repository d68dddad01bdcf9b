/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cacheapp

import (
	"path/filepath"
	"strings"

	"github.com/acronis/go-lrucache/config"
	"github.com/acronis/go-lrucache/httpclient"
	"github.com/acronis/go-lrucache/httpserver"
	"github.com/acronis/go-lrucache/log"
	"github.com/acronis/go-lrucache/lrucache"
	"github.com/acronis/go-lrucache/profserver"
)

// DefaultEnvPrefix is a prefix of environment variables that override configuration values.
const DefaultEnvPrefix = "LRUCACHED"

// AppConfig is a configuration of the cache daemon.
// Every section is loaded with its own key prefix ("cache", "log", "server", "profServer", "client").
type AppConfig struct {
	Cache      *lrucache.Config   `mapstructure:"cache" yaml:"cache" json:"cache"`
	Log        *log.Config        `mapstructure:"log" yaml:"log" json:"log"`
	Server     *httpserver.Config `mapstructure:"server" yaml:"server" json:"server"`
	ProfServer *profserver.Config `mapstructure:"profServer" yaml:"profServer" json:"profServer"`
	Client     *httpclient.Config `mapstructure:"client" yaml:"client" json:"client"`
}

// NewAppConfig creates an empty AppConfig ready to be loaded.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Cache:      lrucache.NewConfig(),
		Log:        log.NewConfig(),
		Server:     httpserver.NewConfig(),
		ProfServer: profserver.NewConfig(),
		Client:     httpclient.NewConfig(),
	}
}

// NewDefaultAppConfig creates an AppConfig with default values in every section.
func NewDefaultAppConfig() *AppConfig {
	return &AppConfig{
		Cache:      lrucache.NewDefaultConfig(),
		Log:        log.NewDefaultConfig(),
		Server:     httpserver.NewDefaultConfig(),
		ProfServer: profserver.NewDefaultConfig(),
		Client:     httpclient.NewDefaultConfig(),
	}
}

func (c *AppConfig) sections() (config.Config, []config.Config) {
	return c.Cache, []config.Config{c.Log, c.Server, c.ProfServer, c.Client}
}

// LoadAppConfig loads the configuration from the file (if path is not empty) and environment variables.
// Files with ".json" extension are parsed as JSON, all others as YAML.
func LoadAppConfig(path, envPrefix string) (*AppConfig, error) {
	cfg := NewAppConfig()
	loader := config.NewDefaultLoader(envPrefix)
	first, rest := cfg.sections()
	if path == "" {
		if err := loader.Load(first, rest...); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err := loader.LoadFromFile(path, dataTypeByPath(path), first, rest...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func dataTypeByPath(path string) config.DataType {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return config.DataTypeJSON
	}
	return config.DataTypeYAML
}
