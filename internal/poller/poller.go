package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/datemate/taskpoll/internal/task"
)

// Fetcher returns the current status record of a task. Calls must not change
// backend state; the poller may repeat them freely.
type Fetcher interface {
	GetTask(ctx context.Context, taskID string) (*task.Task, error)
}

// Option configures a Poller.
type Option func(*Poller)

// WithBackoff replaces the default delay schedule. Schedules with a
// non-positive base, a negative step or a max below base are ignored.
func WithBackoff(b Backoff) Option {
	return func(p *Poller) {
		if b.valid() {
			p.backoff = b
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(p *Poller) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithLogger sets the logger used for poll diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxAttempts ends polling with a failed snapshot once n polls have
// returned a non-terminal status. Zero, the default, polls until the task
// finishes or the poller is cancelled.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		if n >= 0 {
			p.maxAttempts = n
		}
	}
}

// WithRequestTimeout bounds each status fetch. A fetch that times out is a
// transport failure like any other.
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d >= 0 {
			p.requestTimeout = d
		}
	}
}

// Poller tracks at most one task. Start and Cancel never block on the
// network; polls run on timer goroutines.
type Poller struct {
	fetcher        Fetcher
	backoff        Backoff
	clock          Clock
	logger         *slog.Logger
	maxAttempts    int
	requestTimeout time.Duration

	mu          sync.Mutex
	observer    Observer
	taskID      string
	attempt     int
	timer       Timer
	gen         uint64
	cancelFetch context.CancelFunc
}

// New creates an idle Poller that fetches status through fetcher.
func New(fetcher Fetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher: fetcher,
		backoff: DefaultBackoff(),
		clock:   realClock{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "task_poller")
	return p
}

// OnUpdate registers the observer, replacing any previous one.
//
// The observer runs while the poller holds its lock, which is what keeps
// notifications ordered and stops them dead on Cancel. It must return
// promptly and must not call Start or Cancel on the same poller from inside
// the callback.
func (p *Poller) OnUpdate(obs Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer = obs
}

// Start begins tracking taskID, abandoning any task tracked before. The
// observer immediately receives a pending snapshot and the first poll is
// scheduled Backoff.Base later.
func (p *Poller) Start(taskID string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return ErrEmptyTaskID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.taskID != "" {
		p.logger.Debug("superseding tracked task",
			"task_id", p.taskID,
			"new_task_id", taskID)
	}
	p.resetLocked()
	p.gen++
	p.taskID = taskID

	delay := p.backoff.Delay(0)
	p.logger.Debug("tracking task", "task_id", taskID, "first_poll_in", delay)

	p.notifyLocked(Snapshot{
		TaskID:    taskID,
		Status:    task.StatusPending,
		NextDelay: delay,
	})
	p.armLocked(delay)
	return nil
}

// Cancel stops tracking the current task without notifying the observer.
// No snapshot for that task is delivered after Cancel returns, even if a
// status fetch was already in flight. Cancelling an idle poller does nothing.
func (p *Poller) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.taskID == "" && p.timer == nil && p.cancelFetch == nil {
		return
	}
	p.logger.Debug("cancelling task tracking", "task_id", p.taskID, "attempt", p.attempt)
	p.gen++
	p.resetLocked()
}

// TaskID returns the tracked task, or "" when idle.
func (p *Poller) TaskID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.taskID
}

// Attempt returns the number of polls issued for the tracked task.
func (p *Poller) Attempt() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempt
}

// Armed reports whether a poll is scheduled but has not fired yet.
func (p *Poller) Armed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}

func (p *Poller) armLocked(d time.Duration) {
	gen := p.gen
	p.timer = p.clock.AfterFunc(d, func() { p.poll(gen) })
}

// poll is the timer callback. It issues one status fetch for the task that
// was tracked when the timer was armed.
func (p *Poller) poll(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.taskID == "" {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	taskID := p.taskID
	ctx, cancel := p.requestContext()
	p.cancelFetch = cancel
	p.mu.Unlock()

	t, err := p.fetcher.GetTask(ctx, taskID)
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		p.logger.Debug("discarding stale task status", "task_id", taskID)
		return
	}
	p.cancelFetch = nil
	p.attempt++
	p.handleLocked(taskID, t, err)
}

func (p *Poller) handleLocked(taskID string, t *task.Task, err error) {
	if err == nil {
		switch {
		case t == nil:
			err = fmt.Errorf("empty status response")
		case t.ID != "" && t.ID != taskID:
			err = fmt.Errorf("status response is for task %q", t.ID)
		}
	}

	switch {
	case err != nil:
		p.logger.Warn("task status fetch failed",
			"task_id", taskID,
			"attempt", p.attempt,
			"error", err)
		p.finishLocked(Snapshot{
			TaskID:  taskID,
			Status:  task.StatusFailed,
			Attempt: p.attempt,
			Error:   transportFailureMessage,
			Err:     fmt.Errorf("%w: %w", ErrPollTransport, err),
		})

	case t.Status == task.StatusCompleted:
		p.logger.Info("task completed", "task_id", taskID, "attempt", p.attempt)
		p.finishLocked(Snapshot{
			TaskID:  taskID,
			Status:  task.StatusCompleted,
			Attempt: p.attempt,
			Result:  append(json.RawMessage(nil), t.Result...),
		})

	case t.Status == task.StatusFailed:
		msg := t.Error
		if msg == "" {
			msg = backendFailureMessage
		}
		p.logger.Info("task failed on backend",
			"task_id", taskID,
			"attempt", p.attempt,
			"reason", msg)
		p.finishLocked(Snapshot{
			TaskID:  taskID,
			Status:  task.StatusFailed,
			Attempt: p.attempt,
			Error:   msg,
			Err:     ErrBackendFailure,
		})

	case p.maxAttempts > 0 && p.attempt >= p.maxAttempts:
		p.logger.Warn("giving up on task",
			"task_id", taskID,
			"attempt", p.attempt,
			"last_status", t.Status)
		p.finishLocked(Snapshot{
			TaskID:  taskID,
			Status:  task.StatusFailed,
			Attempt: p.attempt,
			Error:   maxAttemptsFailureMessage,
			Err:     ErrMaxAttempts,
		})

	default:
		status := t.Status
		if status == "" {
			status = task.StatusPending
		}
		delay := p.backoff.Delay(p.attempt)
		p.notifyLocked(Snapshot{
			TaskID:    taskID,
			Status:    status,
			Attempt:   p.attempt,
			NextDelay: delay,
		})
		p.armLocked(delay)
	}
}

// finishLocked delivers a terminal snapshot and returns the poller to idle.
func (p *Poller) finishLocked(s Snapshot) {
	p.notifyLocked(s)
	p.resetLocked()
}

func (p *Poller) notifyLocked(s Snapshot) {
	if p.observer != nil {
		p.observer(s)
	}
}

// resetLocked disarms the timer, aborts any in-flight fetch and clears the
// tracked task. Callers bump gen when pending callbacks must be invalidated.
func (p *Poller) resetLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancelFetch != nil {
		p.cancelFetch()
		p.cancelFetch = nil
	}
	p.taskID = ""
	p.attempt = 0
}

func (p *Poller) requestContext() (context.Context, context.CancelFunc) {
	if p.requestTimeout > 0 {
		return context.WithTimeout(context.Background(), p.requestTimeout)
	}
	return context.WithCancel(context.Background())
}
