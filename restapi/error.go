/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package restapi contains helpers for writing JSON responses and errors of the REST API.
package restapi

import (
	"fmt"
	"net/http"
	"strings"
)

// Error is the body of an error response, responded as {"error": {...}}.
// It also implements the error interface, so clients may return it as is.
type Error struct {
	Domain  string                 `json:"domain"`
	Code    string                 `json:"code"`
	Message string                 `json:"message,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

var _ error = (*Error)(nil)

// Error codes.
const (
	ErrCodeInternal              = "internalError"
	ErrCodeBadRequest            = "badRequest"
	ErrCodeNotFound              = "notFound"
	ErrCodeMethodNotAllowed      = "methodNotAllowed"
	ErrCodeRequestEntityTooLarge = "requestEntityTooLarge"
	ErrCodeTooManyRequests       = "tooManyRequests"
)

// Error messages.
const (
	ErrMessageInternal         = "Internal error."
	ErrMessageNotFound         = "Not found."
	ErrMessageMethodNotAllowed = "Method not allowed."
	ErrMessageTooManyRequests  = "Too many requests."
)

var statusErrorCodes = map[int]string{
	http.StatusBadRequest:            ErrCodeBadRequest,
	http.StatusNotFound:              ErrCodeNotFound,
	http.StatusMethodNotAllowed:      ErrCodeMethodNotAllowed,
	http.StatusRequestEntityTooLarge: ErrCodeRequestEntityTooLarge,
	http.StatusTooManyRequests:       ErrCodeTooManyRequests,
	http.StatusInternalServerError:   ErrCodeInternal,
}

// NewError creates a new Error with specified params.
func NewError(domain, code, message string) *Error {
	return &Error{Domain: domain, Code: code, Message: message}
}

// NewInternalError creates a new internal error with specified domain.
func NewInternalError(domain string) *Error {
	return NewError(domain, ErrCodeInternal, ErrMessageInternal)
}

// Error returns "<domain>.<code>: <message>".
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s.%s", e.Domain, e.Code)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Code, e.Message)
}

// AddContext adds value to error context.
func (e *Error) AddContext(field string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[field] = value
	return e
}

// errorCodeForStatus returns the error code for the HTTP status.
// Unknown statuses get their status text in lower camel case ("Request Timeout" -> "requestTimeout").
func errorCodeForStatus(status int) string {
	if code, ok := statusErrorCodes[status]; ok {
		return code
	}
	words := strings.Fields(http.StatusText(status))
	for i := range words {
		words[i] = strings.ToLower(words[i])
		if i > 0 {
			words[i] = strings.ToUpper(words[i][:1]) + words[i][1:]
		}
	}
	return strings.Join(words, "")
}
