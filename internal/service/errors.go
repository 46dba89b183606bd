package service

import "errors"

// Common service errors. Callers check them with errors.Is; the API layer
// maps them to HTTP status codes.
var (
	// ErrInvalidPayload indicates the task payload failed decoding or validation.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidPayload = errors.New("invalid task payload")

	// ErrUnsupportedType indicates the requested task type is unknown.
	// API layer should map this to HTTP 400 Bad Request.
	ErrUnsupportedType = errors.New("unsupported task type")

	// ErrBusy indicates the task queue cannot take more work right now.
	// API layer should map this to HTTP 503 Service Unavailable.
	ErrBusy = errors.New("task queue is full")
)
