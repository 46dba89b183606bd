package poller

import (
	"encoding/json"
	"time"

	"github.com/datemate/taskpoll/internal/task"
)

// Snapshot is the observer's view of the tracked task after one transition.
// Observers receive their own copy and may keep it.
type Snapshot struct {
	TaskID string
	Status task.Status

	// Attempt is the number of status polls issued so far for this task.
	Attempt int

	// NextDelay is how long until the next poll. Zero on terminal snapshots.
	NextDelay time.Duration

	// Result is set only when Status is completed.
	Result json.RawMessage

	// Error is a human-readable message, set only when Status is failed.
	Error string

	// Err classifies a failure: ErrPollTransport, ErrBackendFailure or
	// ErrMaxAttempts, possibly wrapping the underlying cause.
	Err error
}

// Terminal reports whether polling has stopped for this task.
func (s Snapshot) Terminal() bool {
	return s.Status.IsTerminal()
}

// Observer receives snapshots in the order transitions happen.
type Observer func(Snapshot)
