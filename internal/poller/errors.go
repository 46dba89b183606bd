package poller

import "errors"

var (
	// ErrEmptyTaskID is returned by Start when no task ID is given
	ErrEmptyTaskID = errors.New("task id is required")

	// ErrPollTransport marks a snapshot failed because a status fetch
	// could not complete or its response could not be parsed
	ErrPollTransport = errors.New("task status fetch failed")

	// ErrBackendFailure marks a snapshot failed because the backend
	// reported the task as failed
	ErrBackendFailure = errors.New("task failed on the backend")

	// ErrMaxAttempts marks a snapshot failed because the configured poll
	// limit was reached before the task finished
	ErrMaxAttempts = errors.New("task did not finish within the poll limit")
)

// Messages shown to the observer for failures that did not come from the
// backend. The underlying cause is logged and kept in Snapshot.Err.
const (
	transportFailureMessage   = "failed to fetch recommendation status"
	backendFailureMessage     = "recommendation generation failed"
	maxAttemptsFailureMessage = "recommendation generation is taking too long"
)
