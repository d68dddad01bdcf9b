/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/acronis/go-lrucache/log"
)

// bodyRewinder resets a request body so the request can be sent once more.
type bodyRewinder func(req *http.Request) error

// makeRequestBodyRewindable installs a replayable body into req and returns its rewinder.
// GetBody is preferred, then seeking back to the current offset, and in-memory buffering as the last resort.
// Cache values are small enough, so buffering is acceptable for bodies without GetBody.
func makeRequestBodyRewindable(req *http.Request) (bodyRewinder, error) {
	switch body := req.Body.(type) {
	case nil:
		return func(*http.Request) error { return nil }, nil
	case io.ReadSeeker:
		if req.GetBody == nil {
			return seekingRewinder(req, body)
		}
	}
	if req.GetBody != nil {
		return getBodyRewinder(req)
	}
	return bufferingRewinder(req)
}

func getBodyRewinder(req *http.Request) (bodyRewinder, error) {
	rewind := func(r *http.Request) error {
		body, err := r.GetBody()
		if err != nil {
			return fmt.Errorf("get request body: %w", err)
		}
		r.Body = body
		return nil
	}
	if err := rewind(req); err != nil {
		return nil, err
	}
	return rewind, nil
}

func seekingRewinder(req *http.Request, body io.ReadSeeker) (bodyRewinder, error) {
	offset, err := body.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("get current offset of request body: %w", err)
	}
	req.Body = io.NopCloser(body)
	return func(r *http.Request) error {
		if _, seekErr := body.Seek(offset, io.SeekStart); seekErr != nil {
			return fmt.Errorf("seek request body to offset %d: %w", offset, seekErr)
		}
		r.Body = io.NopCloser(body)
		return nil
	}, nil
}

func bufferingRewinder(req *http.Request) (bodyRewinder, error) {
	buf, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	rewind := func(r *http.Request) error {
		r.Body = io.NopCloser(bytes.NewReader(buf))
		return nil
	}
	return rewind, rewind(req)
}

// drainResponseBody discards and closes the body of a response that is going to be retried,
// so the connection may be reused.
func drainResponseBody(resp *http.Response, logger log.FieldLogger) {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		logger.Warn("failed to discard response body before retry", log.Error(err))
	}
	if err := resp.Body.Close(); err != nil {
		logger.Warn("failed to close response body before retry", log.Error(err))
	}
}
