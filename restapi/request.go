/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"code.cloudfoundry.org/bytefmt"
)

// MalformedRequestError is an error that occurs in case of incorrect request.
type MalformedRequestError struct {
	HTTPStatusCode int
	Message        string
}

func (e *MalformedRequestError) Error() string {
	return e.Message
}

// NewMalformedRequestError creates a new MalformedRequestError with 400 status code.
func NewMalformedRequestError(format string, args ...interface{}) *MalformedRequestError {
	return &MalformedRequestError{http.StatusBadRequest, fmt.Sprintf(format, args...)}
}

// NewTooLargeMalformedRequestError creates a new MalformedRequestError for case when request body is too large.
func NewTooLargeMalformedRequestError(maxSizeBytes uint64) *MalformedRequestError {
	return &MalformedRequestError{
		http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Request body must not be larger than %s.", bytefmt.ByteSize(maxSizeBytes)),
	}
}

// ReadRequestBody reads the whole request body.
// If maxSizeBytes is not zero and the body is larger, *MalformedRequestError with 413 status code is returned.
func ReadRequestBody(rw http.ResponseWriter, r *http.Request, maxSizeBytes uint64) ([]byte, error) {
	body := r.Body
	if maxSizeBytes != 0 {
		body = http.MaxBytesReader(rw, r.Body, int64(maxSizeBytes)) //nolint:gosec // limit comes from config
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, NewTooLargeMalformedRequestError(maxSizeBytes)
		}
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return data, nil
}
