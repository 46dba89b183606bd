package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrQueueClosed is returned when enqueuing into a closed queue
var ErrQueueClosed = errors.New("task queue is closed")

// Queue is a bounded in-memory queue of tasks waiting for a worker
type Queue struct {
	mu     sync.Mutex
	tasks  chan *Task
	logger *slog.Logger
	closed bool
}

// NewQueue creates a new task queue with the specified buffer size
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{
		tasks:  make(chan *Task, size),
		logger: logger,
	}
}

// Enqueue adds a task to the queue without blocking.
// Returns ErrQueueFull when the buffer is exhausted and ErrQueueClosed after Close.
func (q *Queue) Enqueue(t *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- t:
		q.logger.Debug("task enqueued",
			"task_id", t.ID,
			"task_type", t.Type,
			"queue_len", len(q.tasks),
			"queue_cap", cap(q.tasks))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.tasks))
	}
}

// Close closes the queue, preventing further submission
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.tasks)
		q.logger.Info("task queue closed")
	}
}

// Len returns the number of queued tasks
func (q *Queue) Len() int {
	return len(q.tasks)
}

// C returns the receive side of the queue
func (q *Queue) C() <-chan *Task {
	return q.tasks
}
