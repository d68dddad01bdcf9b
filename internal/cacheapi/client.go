/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cacheapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/acronis/go-lrucache/httpclient"
	"github.com/acronis/go-lrucache/restapi"
	"github.com/acronis/go-lrucache/retry"
)

// ErrEmptyKey is returned when an empty key is passed to the client.
var ErrEmptyKey = errors.New("key must not be empty")

// ErrNotReady is returned by Client.WaitReady when the health check does not pass.
var ErrNotReady = errors.New("cache server is not ready")

// ClientError is returned when the server responds with an unexpected status code.
type ClientError struct {
	StatusCode int
	Err        *restapi.Error
}

func (e *ClientError) Error() string {
	if e.Err != nil && e.Err.Message != "" {
		return fmt.Sprintf("unexpected status code %d: %s (%s)", e.StatusCode, e.Err.Message, e.Err.Code)
	}
	return fmt.Sprintf("unexpected status code %d", e.StatusCode)
}

// Unwrap returns the error responded by the server, if any.
func (e *ClientError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// Client is a client for the cache REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Client for the server available at baseURL (e.g. "http://localhost:8080").
func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: httpClient}
}

// NewClientWithConfig creates a new Client with an HTTP client built by httpclient.NewWithOpts.
func NewClientWithConfig(baseURL string, cfg *httpclient.Config, opts httpclient.Opts) (*Client, error) {
	httpClient, err := httpclient.NewWithOpts(cfg, opts)
	if err != nil {
		return nil, err
	}
	return NewClient(baseURL, httpClient), nil
}

// Put stores the value. Zero ttl means the server's default TTL, lrucache.NoExpiration means no expiration.
func (c *Client) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	query := url.Values{}
	if ttlStr := FormatTTL(ttl, ttl == 0); ttlStr != "" {
		query.Set("ttl", ttlStr)
	}
	return c.do(ctx, http.MethodPut, c.entryPath(key), query, value, http.StatusNoContent, nil)
}

// Get returns the value stored by the key. False is returned if there is no live entry.
func (c *Client) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	resp, err := c.send(ctx, http.MethodGet, c.entryPath(key), nil, nil)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusOK {
		if value, err = io.ReadAll(resp.Body); err != nil {
			return nil, false, fmt.Errorf("read response body: %w", err)
		}
		return value, true, nil
	}
	clientErr := newClientError(resp)
	if clientErr.isEntryNotFound(key) {
		return nil, false, nil
	}
	return nil, false, clientErr
}

// Delete removes the entry and reports whether a live entry was removed.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	err := c.do(ctx, http.MethodDelete, c.entryPath(key), nil, nil, http.StatusNoContent, nil)
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.isEntryNotFound(key) {
		return false, nil
	}
	return err == nil, err
}

// Clear removes all entries.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/entries", nil, nil, http.StatusNoContent, nil)
}

// Keys returns keys of live entries, the most recently used first.
func (c *Client) Keys(ctx context.Context) ([]string, error) {
	var respData KeysResponse
	if err := c.do(ctx, http.MethodGet, "/keys", nil, nil, http.StatusOK, &respData); err != nil {
		return nil, err
	}
	return respData.Keys, nil
}

// Stats returns usage statistics of the cache.
func (c *Client) Stats(ctx context.Context) (StatsResponse, error) {
	var respData StatsResponse
	err := c.do(ctx, http.MethodGet, "/stats", nil, nil, http.StatusOK, &respData)
	return respData, err
}

// Cleanup removes expired entries on the server and returns their number.
func (c *Client) Cleanup(ctx context.Context) (int, error) {
	var respData CleanupResponse
	err := c.do(ctx, http.MethodPost, "/cleanup", nil, nil, http.StatusOK, &respData)
	return respData.Removed, err
}

// WaitReady polls /healthz until it responds with 200 or the policy gives up.
func (c *Client) WaitReady(ctx context.Context, policy retry.Policy) error {
	return retry.DoWithRetry(ctx, policy, nil, nil, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNotReady, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: health check responded with %d", ErrNotReady, resp.StatusCode)
		}
		return nil
	})
}

func (c *Client) entryPath(key string) string {
	return "/entries/" + url.PathEscape(key)
}

func (c *Client) do(
	ctx context.Context, method, path string, query url.Values, body []byte, wantStatus int, respData interface{},
) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != wantStatus {
		return newClientError(resp)
	}
	if respData == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(respData); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, error) {
	reqURL := fmt.Sprintf("%s/api/%s/v%d%s", c.baseURL, ServiceNameInURL, APIVersion, path)
	if len(query) != 0 {
		reqURL += "?" + query.Encode()
	}
	var bodyReader io.Reader = http.NoBody
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do %s %s: %w", method, path, err)
	}
	return resp, nil
}

// isEntryNotFound distinguishes a cache miss from a 404 responded by the router for an unknown path.
func (e *ClientError) isEntryNotFound(key string) bool {
	if e.StatusCode != http.StatusNotFound || e.Err == nil {
		return false
	}
	return e.Err.Domain == ErrorDomain && e.Err.Code == ErrCodeNotFound && e.Err.Context["key"] == key
}

func newClientError(resp *http.Response) *ClientError {
	clientErr := &ClientError{StatusCode: resp.StatusCode}
	var errData restapi.ErrorResponseData
	if resp.Header.Get("Content-Type") == restapi.ContentTypeAppJSON &&
		json.NewDecoder(resp.Body).Decode(&errData) == nil {
		clientErr.Err = errData.Err
	}
	return clientErr
}
