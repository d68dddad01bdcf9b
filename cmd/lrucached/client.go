/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/acronis/go-lrucache/httpclient"
	"github.com/acronis/go-lrucache/internal/cacheapi"
)

var (
	addrFlag = &cli.StringFlag{
		Name:    "addr",
		Usage:   "base URL of the cache daemon",
		Value:   "http://127.0.0.1:8080",
		EnvVars: []string{"LRUCACHED_ADDR"},
	}
	ttlFlag = &cli.StringFlag{
		Name:  "ttl",
		Usage: `entry TTL (e.g. "30s"), "never" for no expiration, empty for the daemon's default`,
	}
)

var errKeyRequired = errors.New("key argument is required")

func clientCommand() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "send requests to a running cache daemon",
		Flags: []cli.Flag{addrFlag},
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "print the value stored by the key",
				ArgsUsage: "<key>",
				Action:    withClient(clientGet),
			},
			{
				Name:      "put",
				Usage:     "store the value by the key, the value is read from stdin if it is omitted",
				ArgsUsage: "<key> [value]",
				Flags:     []cli.Flag{ttlFlag},
				Action:    withClient(clientPut),
			},
			{
				Name:      "delete",
				Usage:     "delete the entry",
				ArgsUsage: "<key>",
				Action:    withClient(clientDelete),
			},
			{
				Name:   "keys",
				Usage:  "list keys from the most to the least recently used",
				Action: withClient(clientKeys),
			},
			{
				Name:   "stats",
				Usage:  "print usage statistics",
				Action: withClient(clientStats),
			},
			{
				Name:   "cleanup",
				Usage:  "remove expired entries",
				Action: withClient(clientCleanup),
			},
			{
				Name:   "clear",
				Usage:  "remove all entries",
				Action: withClient(clientClear),
			},
		},
	}
}

func withClient(action func(cliCtx *cli.Context, client *cacheapi.Client) error) cli.ActionFunc {
	return func(cliCtx *cli.Context) error {
		cfg, err := loadConfig(cliCtx)
		if err != nil {
			return err
		}
		client, err := cacheapi.NewClientWithConfig(cliCtx.String(addrFlag.Name), cfg.Client, httpclient.Opts{
			UserAgent:   appName + "-cli",
			RequestType: "lrucache-cli",
		})
		if err != nil {
			return fmt.Errorf("create http client: %w", err)
		}
		return action(cliCtx, client)
	}
}

func keyArg(cliCtx *cli.Context) (string, error) {
	key := cliCtx.Args().First()
	if key == "" {
		return "", errKeyRequired
	}
	return key, nil
}

func clientGet(cliCtx *cli.Context, client *cacheapi.Client) error {
	key, err := keyArg(cliCtx)
	if err != nil {
		return err
	}
	value, found, err := client.Get(cliCtx.Context, key)
	if err != nil {
		return err
	}
	if !found {
		return cli.Exit(fmt.Sprintf("key %q not found", key), 1)
	}
	_, err = cliCtx.App.Writer.Write(value)
	return err
}

func clientPut(cliCtx *cli.Context, client *cacheapi.Client) error {
	key, err := keyArg(cliCtx)
	if err != nil {
		return err
	}
	ttl, _, err := cacheapi.ParseTTL(cliCtx.String(ttlFlag.Name))
	if err != nil {
		return err
	}
	var value []byte
	if cliCtx.Args().Len() > 1 {
		value = []byte(cliCtx.Args().Get(1))
	} else if value, err = io.ReadAll(cliCtx.App.Reader); err != nil {
		return fmt.Errorf("read value: %w", err)
	}
	return client.Put(cliCtx.Context, key, value, ttl)
}

func clientDelete(cliCtx *cli.Context, client *cacheapi.Client) error {
	key, err := keyArg(cliCtx)
	if err != nil {
		return err
	}
	deleted, err := client.Delete(cliCtx.Context, key)
	if err != nil {
		return err
	}
	if !deleted {
		return cli.Exit(fmt.Sprintf("key %q not found", key), 1)
	}
	return nil
}

func clientKeys(cliCtx *cli.Context, client *cacheapi.Client) error {
	keys, err := client.Keys(cliCtx.Context)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err = fmt.Fprintln(cliCtx.App.Writer, key); err != nil {
			return err
		}
	}
	return nil
}

func clientStats(cliCtx *cli.Context, client *cacheapi.Client) error {
	stats, err := client.Stats(cliCtx.Context)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cliCtx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func clientCleanup(cliCtx *cli.Context, client *cacheapi.Client) error {
	removed, err := client.Cleanup(cliCtx.Context)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cliCtx.App.Writer, "%d expired entries removed\n", removed)
	return err
}

func clientClear(cliCtx *cli.Context, client *cacheapi.Client) error {
	return client.Clear(cliCtx.Context)
}
