package recommend

import "errors"

var (
	// ErrNoRequest is returned by Retry and Wait before any request was made
	ErrNoRequest = errors.New("no recommendation has been requested")

	// ErrSuperseded is returned by a request that was cancelled or replaced
	// by a newer one while it was being submitted
	ErrSuperseded = errors.New("recommendation request was superseded")

	// ErrSubmit classifies a failure to create the backend task
	ErrSubmit = errors.New("failed to submit recommendation request")
)

const submitFailureMessage = "failed to request a recommendation, please try again"
