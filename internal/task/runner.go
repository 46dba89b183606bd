package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/datemate/taskpoll/internal/redact"
)

const (
	queueFullMessage   = "task queue is full, try again later"
	interruptedMessage = "task interrupted by server restart, try again"
)

// Handler executes one task type and returns its JSON result
type Handler interface {
	Handle(ctx context.Context, t *Task) (json.RawMessage, error)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, t *Task) (json.RawMessage, error)

// Handle calls f(ctx, t)
func (f HandlerFunc) Handle(ctx context.Context, t *Task) (json.RawMessage, error) {
	return f(ctx, t)
}

// RunnerConfig holds configuration for the task runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// TaskTimeout bounds a single handler execution. Zero disables it.
	TaskTimeout time.Duration

	// TTL is how long a task record is kept after it finishes
	TTL time.Duration

	// SweepInterval defines how often expired tasks are deleted.
	// If zero, defaults to 5 minutes
	SweepInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:   2,
		QueueSize:     100,
		TaskTimeout:   2 * time.Minute,
		TTL:           time.Hour,
		SweepInterval: 5 * time.Minute,
	}
}

// Runner manages background task execution
type Runner struct {
	store      Store
	queue      *Queue
	handlers   map[Type]Handler
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	logger     *slog.Logger
	now        func() time.Time
	errHandler func(t *Task, err error)
}

// NewRunner creates a new Runner
func NewRunner(store Store, config RunnerConfig, logger *slog.Logger) *Runner {
	if config.SweepInterval == 0 {
		config.SweepInterval = 5 * time.Minute
	}
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.With("component", "task_runner")

	return &Runner{
		store:      store,
		queue:      NewQueue(config.QueueSize, logger),
		handlers:   make(map[Type]Handler),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		now:        time.Now,
		errHandler: func(t *Task, err error) {
			logger.Error("task execution failed",
				"task_id", t.ID,
				"task_type", t.Type,
				"error", err)
		},
	}
}

// Register binds a handler to a task type. It must be called before Start.
func (r *Runner) Register(typ Type, h Handler) {
	r.handlers[typ] = h
}

// SetErrorHandler allows setting a custom error handler function
func (r *Runner) SetErrorHandler(handler func(t *Task, err error)) {
	r.errHandler = handler
}

// Submit persists a task as pending and queues it for execution.
// When the queue is full the stored record is failed so pollers see a
// terminal state instead of a task that never starts.
func (r *Runner) Submit(ctx context.Context, t *Task) error {
	if r.ctx.Err() != nil {
		return ErrRunnerStopped
	}

	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.CreatedAt == nil {
		now := r.now().UTC()
		t.CreatedAt = &now
	}

	if err := r.store.Create(ctx, t); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(t); err != nil {
		if failErr := r.store.Fail(ctx, t.ID, queueFullMessage, r.now().UTC()); failErr != nil {
			r.logger.Error("failed to mark rejected task as failed",
				"task_id", t.ID,
				"error", failErr)
		}
		return err
	}
	return nil
}

// Start recovers pending tasks and begins processing
func (r *Runner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.sweeper()

	return nil
}

// Stop gracefully shuts down the runner and waits for workers to exit
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.queue.Close()
}

// Recover requeues tasks left unfinished by a previous run. Tasks that were
// running when it stopped are reset to pending first. A task that cannot be
// queued is failed.
func (r *Runner) Recover(ctx context.Context) error {
	pending, err := r.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	running, err := r.store.ListRunning(ctx)
	if err != nil {
		return fmt.Errorf("failed to get running tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"running_count", len(running))

	for _, t := range pending {
		r.requeue(ctx, t)
	}

	for _, t := range running {
		if err := r.store.MarkPending(ctx, t.ID); err != nil {
			r.logger.Error("failed to reset interrupted task",
				"task_id", t.ID,
				"task_type", t.Type,
				"error", err)
			r.failInterrupted(ctx, t)
			continue
		}
		t.Status = StatusPending
		t.StartedAt = nil
		r.requeue(ctx, t)
	}
	return nil
}

func (r *Runner) requeue(ctx context.Context, t *Task) {
	if err := r.queue.Enqueue(t); err != nil {
		r.logger.Error("failed to requeue task",
			"task_id", t.ID,
			"task_type", t.Type,
			"error", err)
		r.failInterrupted(ctx, t)
	}
}

func (r *Runner) failInterrupted(ctx context.Context, t *Task) {
	if err := r.store.Fail(ctx, t.ID, interruptedMessage, r.now().UTC()); err != nil {
		r.logger.Error("failed to mark interrupted task as failed",
			"task_id", t.ID,
			"error", err)
	}
}

// worker processes tasks from the queue
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case t, ok := <-r.queue.C():
			if !ok {
				r.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			r.processTask(t, id)
		}
	}
}

// processTask handles execution of a single task
func (r *Runner) processTask(t *Task, workerID int) {
	// Store writes use a detached context so a shutdown mid-task still
	// records the outcome.
	storeCtx := context.Background()
	logger := r.logger.With(
		"task_id", t.ID,
		"task_type", t.Type,
		"worker_id", workerID,
	)

	if err := r.store.MarkRunning(storeCtx, t.ID, r.now().UTC()); err != nil {
		logger.Error("failed to update task status to running", "error", err)
		return
	}

	logger.Info("processing task")

	result, err := r.execute(t)
	if err != nil {
		logger.Error("task execution failed", "error", redact.Error(err))
		if updateErr := r.store.Fail(storeCtx, t.ID, failureMessage(err), r.now().UTC()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}
		r.errHandler(t, err)
		return
	}

	logger.Info("task completed successfully")
	if updateErr := r.store.Complete(storeCtx, t.ID, result, r.now().UTC()); updateErr != nil {
		logger.Error("failed to update task status to completed", "error", updateErr)
	}
}

func (r *Runner) execute(t *Task) (json.RawMessage, error) {
	h, ok := r.handlers[t.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, t.Type)
	}

	ctx := r.ctx
	if r.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.TaskTimeout)
		defer cancel()
	}
	return h.Handle(ctx, t)
}

// FailureError carries the message stored on a failed task. The wrapped
// error is logged but never shown to clients.
type FailureError struct {
	Message string
	Err     error
}

func (e *FailureError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

// Failure wraps err with a client-facing failure message.
func Failure(message string, err error) error {
	return &FailureError{Message: message, Err: err}
}

func failureMessage(err error) string {
	var failure *FailureError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "task timed out"
	case errors.Is(err, context.Canceled):
		return "task interrupted by server shutdown"
	case errors.As(err, &failure):
		return failure.Message
	default:
		return redact.Error(err)
	}
}

// sweeper periodically deletes finished task records older than the TTL
func (r *Runner) sweeper() {
	defer r.wg.Done()

	if r.config.TTL <= 0 {
		return
	}

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(r.ctx)
		}
	}
}

// Sweep deletes finished task records older than the configured TTL and
// returns how many were removed. Unfinished tasks are left alone.
func (r *Runner) Sweep(ctx context.Context) int {
	if r.config.TTL <= 0 {
		return 0
	}
	cutoff := r.now().UTC().Add(-r.config.TTL)
	n, err := r.store.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		r.logger.Error("failed to delete expired tasks", "error", err)
		return 0
	}
	if n > 0 {
		r.logger.Info("deleted expired tasks", "count", n)
	}
	return n
}
