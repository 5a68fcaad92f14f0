package tunehub

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is wrapped by failures where no response was received.
	ErrTransport = errors.New("tunehub: no response from endpoint")

	// ErrTrackUnavailable is returned when the upstream refuses to serve a track.
	ErrTrackUnavailable = errors.New(
		"this track is currently unavailable, it may be restricted or the link has expired",
	)

	// ErrEmptyLocator is returned when an upstream answered without a usable locator.
	ErrEmptyLocator = errors.New("tunehub: empty locator")
)

const defaultAPIErrorMessage = "API request failed"

// StatusError is returned when an endpoint answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tunehub: status %d", e.StatusCode)
	}
	return fmt.Sprintf("tunehub: status %d: %s", e.StatusCode, e.Message)
}

// IsServerError reports whether the status is in the 5xx range.
func (e *StatusError) IsServerError() bool {
	return e.StatusCode >= 500
}

// APIError is returned when the response envelope carries a non-success code.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(code int, message string) *APIError {
	if message == "" {
		message = defaultAPIErrorMessage
	}
	return &APIError{Code: code, Message: message}
}
