/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient provides an HTTP client with retries, logging, request ID and User-Agent propagation.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/acronis/go-lrucache/log"
)

// Opts provides options for NewWithOpts and MustWithOpts functions.
type Opts struct {
	// UserAgent is a user agent string.
	UserAgent string

	// RequestType is a type of request used in log records.
	RequestType string

	// Delegate is the next RoundTripper in the chain. A clone of http.DefaultTransport is used by default.
	Delegate http.RoundTripper

	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// RequestIDProvider is a function that provides a request ID.
	RequestIDProvider func(ctx context.Context) string
}

// New wraps delegate transports with logging, retryable, request id
// and returns an error if any occurs.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// Must wraps delegate transports with logging, retryable, request id
// and panics if any error occurs.
func Must(cfg *Config) *http.Client {
	client, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// NewWithOpts wraps delegate transports with options
// logging, user agent, request id, retryable
// and returns an error if any occurs.
// Every retry attempt passes through the logging round tripper, while the request ID stays the same.
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}

	if cfg.Log.Enabled {
		delegate = NewLoggingRoundTripperWithOpts(delegate, opts.RequestType, LoggingRoundTripperOpts{
			LoggerProvider:       opts.LoggerProvider,
			Mode:                 LoggingMode(cfg.Log.Mode),
			SlowRequestThreshold: time.Duration(cfg.Log.SlowRequestThreshold),
		})
	}

	if cfg.Retries.Enabled && cfg.Retries.MaxAttempts > 0 {
		var err error
		delegate, err = NewRetryableRoundTripperWithOpts(delegate, RetryableRoundTripperOpts{
			LoggerProvider:   opts.LoggerProvider,
			MaxRetryAttempts: cfg.Retries.MaxAttempts,
			BackoffPolicy:    cfg.Retries.GetPolicy(),
		})
		if err != nil {
			return nil, fmt.Errorf("create retryable round tripper: %w", err)
		}
	}

	if opts.UserAgent != "" {
		delegate = NewUserAgentRoundTripper(delegate, opts.UserAgent)
	}

	delegate = NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{
		RequestIDProvider: opts.RequestIDProvider,
	})

	return &http.Client{Transport: delegate, Timeout: time.Duration(cfg.Timeout)}, nil
}

// MustWithOpts wraps delegate transports with options and panics if any error occurs.
func MustWithOpts(cfg *Config, opts Opts) *http.Client {
	client, err := NewWithOpts(cfg, opts)
	if err != nil {
		panic(err)
	}
	return client
}
