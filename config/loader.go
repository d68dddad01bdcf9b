/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"io"
)

// Loader fills configuration objects from a DataProvider.
// Defaults of every object are registered in the provider first, so
// file and environment values override them.
type Loader struct {
	DataProvider DataProvider
}

// NewDefaultLoader creates a Loader backed by viper that also reads environment variables with the given prefix.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	dp := NewViperAdapter()
	dp.UseEnvVars(envVarsPrefix)
	return &Loader{DataProvider: dp}
}

// NewLoader creates a Loader that reads values from dp.
func NewLoader(dp DataProvider) *Loader {
	return &Loader{DataProvider: dp}
}

// LoadFromFile reads the file of the given format into the provider and fills the configuration objects.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfg Config, cfgs ...Config) error {
	return l.loadAfter(func() error { return l.DataProvider.SetFromFile(path, dataType) }, cfg, cfgs)
}

// LoadFromReader reads data of the given format into the provider and fills the configuration objects.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfg Config, cfgs ...Config) error {
	return l.loadAfter(func() error { return l.DataProvider.SetFromReader(reader, dataType) }, cfg, cfgs)
}

// Load fills the configuration objects from values the provider already has
// (defaults, environment variables and explicitly set ones).
func (l *Loader) Load(cfg Config, cfgs ...Config) error {
	return l.loadAfter(nil, cfg, cfgs)
}

func (l *Loader) loadAfter(readSource func() error, cfg Config, rest []Config) error {
	if readSource != nil {
		if err := readSource(); err != nil {
			return err
		}
	}
	objects := make([]Config, 0, len(rest)+1)
	objects = append(objects, cfg)
	objects = append(objects, rest...)
	for _, c := range objects {
		c.SetProviderDefaults(dataProviderFor(c, l.DataProvider))
	}
	for _, c := range objects {
		if err := c.Set(dataProviderFor(c, l.DataProvider)); err != nil {
			return err
		}
	}
	return nil
}
