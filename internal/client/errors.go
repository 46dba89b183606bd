package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedResponse is returned when a response body cannot be decoded
	ErrMalformedResponse = errors.New("malformed response body")

	// ErrNoTaskID is returned when the backend accepts a submission without
	// returning a task id
	ErrNoTaskID = errors.New("submission response has no task id")

	// ErrInvalidBaseURL is returned by New for unusable base URLs
	ErrInvalidBaseURL = errors.New("invalid base url")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is a 404 from the backend, which for task
// lookups means the id is unknown or the record has expired.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
