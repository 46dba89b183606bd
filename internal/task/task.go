package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status represents the current state of a task
type Status string

// Possible task status values
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further status changes will happen.
// Any status outside completed/failed, including ones this package does not
// know about, counts as in progress.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Type identifies the kind of AI work a task performs
type Type string

// Task type constants
const (
	// TypeItinerary generates date-course suggestions for a couple
	TypeItinerary Type = "itinerary"

	// TypeReport generates the narrative summary of a monthly relationship report
	TypeReport Type = "report"
)

// Valid reports whether t is a known task type.
func (t Type) Valid() bool {
	return t == TypeItinerary || t == TypeReport
}

// Common errors returned by task stores and the runner
var (
	ErrNotFound      = errors.New("task not found")
	ErrQueueFull     = errors.New("task queue is full")
	ErrRunnerStopped = errors.New("task runner is stopped")
	ErrUnsupported   = errors.New("unsupported task type")
)

// Task is the status record of one asynchronous AI request. It is the body of
// GET /api/ai/tasks/{id}.
type Task struct {
	ID         string          `json:"task_id"`
	Status     Status          `json:"status"`
	Type       Type            `json:"type,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  *time.Time      `json:"created_at,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`

	// Payload is the request input; it never leaves the server.
	Payload json.RawMessage `json:"-"`
}

// HasResult reports whether the record carries a non-null result.
func (t *Task) HasResult() bool {
	r := bytes.TrimSpace(t.Result)
	return len(r) > 0 && !bytes.Equal(r, []byte("null"))
}

// Items decodes the result as an ordered sequence of recommendation items.
// A missing result decodes to an empty slice.
func (t *Task) Items() ([]json.RawMessage, error) {
	if !t.HasResult() {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(t.Result, &items); err != nil {
		return nil, fmt.Errorf("task %s result is not a list: %w", t.ID, err)
	}
	return items, nil
}

// Clone returns a deep copy so callers can hand records across goroutines.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Result = cloneRaw(t.Result)
	c.Payload = cloneRaw(t.Payload)
	c.CreatedAt = cloneTime(t.CreatedAt)
	c.StartedAt = cloneTime(t.StartedAt)
	c.FinishedAt = cloneTime(t.FinishedAt)
	return &c
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	return append(json.RawMessage(nil), r...)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Store defines the interface for persisting task records
type Store interface {
	// Create persists a new task in pending state
	Create(ctx context.Context, t *Task) error

	// Get returns the task with the given ID or ErrNotFound
	Get(ctx context.Context, id string) (*Task, error)

	// MarkRunning moves a task to running and stamps started_at
	MarkRunning(ctx context.Context, id string, at time.Time) error

	// MarkPending moves a task back to pending and clears started_at
	MarkPending(ctx context.Context, id string) error

	// Complete stores the result and moves the task to completed
	Complete(ctx context.Context, id string, result json.RawMessage, at time.Time) error

	// Fail stores the error message and moves the task to failed
	Fail(ctx context.Context, id string, errMsg string, at time.Time) error

	// Delete removes a task; deleting an unknown task returns ErrNotFound
	Delete(ctx context.Context, id string) error

	// ListPending returns tasks still in pending state, oldest first
	ListPending(ctx context.Context) ([]*Task, error)

	// ListRunning returns tasks in running state, oldest first
	ListRunning(ctx context.Context) ([]*Task, error)

	// DeleteFinishedBefore removes completed and failed tasks that finished
	// before cutoff and returns how many were removed. Unfinished tasks are
	// never removed.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
