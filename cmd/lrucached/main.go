/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// lrucached is an in-memory LRU cache daemon with a REST API and a command-line client for it.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-lrucache/internal/cacheapp"
	"github.com/acronis/go-lrucache/log"
)

const appName = "lrucached"

var (
	configFileFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to the configuration file (YAML or JSON)",
		EnvVars: []string{cacheapp.DefaultEnvPrefix + "_CONFIG"},
	}
	envPrefixFlag = &cli.StringFlag{
		Name:  "env-prefix",
		Usage: "prefix of environment variables overriding configuration values",
		Value: cacheapp.DefaultEnvPrefix,
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   appName,
		Usage:  "in-memory LRU cache with per-entry TTL served over HTTP",
		Flags:  []cli.Flag{configFileFlag, envPrefixFlag},
		Action: runDaemon,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the cache daemon (default)",
				Action: runDaemon,
			},
			{
				Name:   "print-config",
				Usage:  "print the effective configuration in YAML",
				Action: printConfig,
			},
			clientCommand(),
		},
	}
}

func loadConfig(cliCtx *cli.Context) (*cacheapp.AppConfig, error) {
	cfg, err := cacheapp.LoadAppConfig(cliCtx.String(configFileFlag.Name), cliCtx.String(envPrefixFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func runDaemon(cliCtx *cli.Context) error {
	cfg, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}
	logger, closeLogger := log.NewLogger(cfg.Log)
	defer closeLogger()

	app, err := cacheapp.New(cfg, logger, cacheapp.Opts{})
	if err != nil {
		logger.Error("failed to create cache daemon", log.Error(err))
		return err
	}
	return app.Run(cliCtx.Context)
}

func printConfig(cliCtx *cli.Context) error {
	cfg, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cliCtx.App.Writer)
	enc.SetIndent(2)
	if err = enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
