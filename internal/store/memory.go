package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/datemate/taskpoll/internal/task"
)

// MemoryTaskStore is a task.Store kept in process memory. Records are lost on
// restart, which matches the short-lived nature of AI task results.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*task.Task
}

var _ task.Store = (*MemoryTaskStore)(nil)

// NewMemoryTaskStore creates an empty store
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks: make(map[string]*task.Task),
	}
}

// Create persists a new task
func (s *MemoryTaskStore) Create(ctx context.Context, t *task.Task) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("task id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.ID]; exists {
		return fmt.Errorf("task %s already exists", t.ID)
	}
	s.tasks[t.ID] = t.Clone()
	return nil
}

// Get returns a copy of the stored task
func (s *MemoryTaskStore) Get(ctx context.Context, id string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, task.ErrNotFound
	}
	return t.Clone(), nil
}

// MarkRunning moves a task to running
func (s *MemoryTaskStore) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return s.update(id, func(t *task.Task) {
		t.Status = task.StatusRunning
		t.StartedAt = &at
	})
}

// MarkPending moves a task back to pending
func (s *MemoryTaskStore) MarkPending(ctx context.Context, id string) error {
	return s.update(id, func(t *task.Task) {
		t.Status = task.StatusPending
		t.StartedAt = nil
	})
}

// Complete stores a result and moves the task to completed
func (s *MemoryTaskStore) Complete(ctx context.Context, id string, result json.RawMessage, at time.Time) error {
	return s.update(id, func(t *task.Task) {
		t.Status = task.StatusCompleted
		t.Result = append(json.RawMessage(nil), result...)
		t.Error = ""
		t.FinishedAt = &at
	})
}

// Fail stores an error message and moves the task to failed
func (s *MemoryTaskStore) Fail(ctx context.Context, id string, errMsg string, at time.Time) error {
	return s.update(id, func(t *task.Task) {
		t.Status = task.StatusFailed
		t.Result = nil
		t.Error = errMsg
		t.FinishedAt = &at
	})
}

// Delete removes a task
func (s *MemoryTaskStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return task.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// ListPending returns pending tasks ordered by creation time
func (s *MemoryTaskStore) ListPending(ctx context.Context) ([]*task.Task, error) {
	return s.list(task.StatusPending), nil
}

// ListRunning returns running tasks ordered by creation time
func (s *MemoryTaskStore) ListRunning(ctx context.Context) ([]*task.Task, error) {
	return s.list(task.StatusRunning), nil
}

// DeleteFinishedBefore removes terminal tasks that finished before cutoff
func (s *MemoryTaskStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, t := range s.tasks {
		if !t.Status.IsTerminal() || t.FinishedAt == nil {
			continue
		}
		if t.FinishedAt.Before(cutoff) {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryTaskStore) list(status task.Status) []*task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*task.Task
	for _, t := range s.tasks {
		if t.Status == status {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return createdAt(out[i]).Before(createdAt(out[j]))
	})
	return out
}

func (s *MemoryTaskStore) update(id string, fn func(t *task.Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return task.ErrNotFound
	}
	fn(t)
	return nil
}

func createdAt(t *task.Task) time.Time {
	if t.CreatedAt == nil {
		return time.Time{}
	}
	return *t.CreatedAt
}
