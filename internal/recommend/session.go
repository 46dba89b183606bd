package recommend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/datemate/taskpoll/internal/poller"
	"github.com/datemate/taskpoll/internal/task"
)

// Submitter creates backend tasks. *client.Client implements it.
type Submitter interface {
	SubmitItinerary(ctx context.Context, p task.ItineraryPayload) (string, error)
	SubmitReport(ctx context.Context, p task.ReportPayload) (string, error)
}

// Tracker follows one task at a time. *poller.Poller implements it.
type Tracker interface {
	OnUpdate(obs poller.Observer)
	Start(taskID string) error
	Cancel()
}

type submitFunc func(ctx context.Context) (string, error)

// Session owns the state of the recommendation view. A newer request always
// replaces an older one.
type Session struct {
	submitter Submitter
	tracker   Tracker
	logger    *slog.Logger

	// ctl serialises request bookkeeping with Cancel
	ctl  sync.Mutex
	gen  uint64
	last *pendingRequest

	mu      sync.Mutex
	state   State
	changed chan struct{}
	subs    []func(State)
}

type pendingRequest struct {
	kind   task.Type
	submit submitFunc
}

// NewSession creates an idle session and registers it as the tracker's
// observer.
func NewSession(submitter Submitter, tracker Tracker, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{
		submitter: submitter,
		tracker:   tracker,
		logger:    logger.With("component", "recommend_session"),
		state:     State{Phase: PhaseIdle},
		changed:   make(chan struct{}),
	}
	tracker.OnUpdate(s.observe)
	return s
}

// Subscribe registers fn to receive every state change. Callbacks may run on
// poller goroutines and must not call RequestItinerary, RequestReport, Retry
// or Cancel synchronously.
func (s *Session) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// State returns a copy of the current view state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// RequestItinerary submits an itinerary request and starts following it.
func (s *Session) RequestItinerary(ctx context.Context, p task.ItineraryPayload) error {
	return s.request(ctx, &pendingRequest{
		kind: task.TypeItinerary,
		submit: func(ctx context.Context) (string, error) {
			return s.submitter.SubmitItinerary(ctx, p)
		},
	})
}

// RequestReport submits a report summary request and starts following it.
func (s *Session) RequestReport(ctx context.Context, p task.ReportPayload) error {
	return s.request(ctx, &pendingRequest{
		kind: task.TypeReport,
		submit: func(ctx context.Context) (string, error) {
			return s.submitter.SubmitReport(ctx, p)
		},
	})
}

// Retry submits the last request again. The backend assigns a new task id.
func (s *Session) Retry(ctx context.Context) error {
	s.ctl.Lock()
	last := s.last
	s.ctl.Unlock()

	if last == nil {
		return ErrNoRequest
	}
	s.logger.Info("retrying recommendation", "kind", last.kind)
	return s.request(ctx, last)
}

// Cancel stops following the current task and moves a generating view to
// cancelled. It does nothing when no request is in progress.
func (s *Session) Cancel() {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.gen++
	s.tracker.Cancel()

	s.mu.Lock()
	if s.state.Phase != PhaseGenerating {
		s.mu.Unlock()
		return
	}
	s.logger.Info("recommendation cancelled", "task_id", s.state.TaskID)
	st := s.state
	st.Phase = PhaseCancelled
	st.NextDelay = 0
	s.commit(st)
}

// Wait blocks until the current request settles or ctx is done.
func (s *Session) Wait(ctx context.Context) (State, error) {
	for {
		s.mu.Lock()
		st := s.state.clone()
		ch := s.changed
		s.mu.Unlock()

		switch {
		case st.Phase == PhaseIdle:
			return st, ErrNoRequest
		case st.Phase.Settled():
			return st, nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

func (s *Session) request(ctx context.Context, req *pendingRequest) error {
	s.ctl.Lock()
	s.gen++
	gen := s.gen
	s.last = req
	s.tracker.Cancel()
	s.mu.Lock()
	s.commit(State{Phase: PhaseGenerating, Kind: req.kind, Status: task.StatusPending})
	s.ctl.Unlock()

	taskID, err := req.submit(ctx)

	s.ctl.Lock()
	defer s.ctl.Unlock()

	if gen != s.gen {
		return ErrSuperseded
	}

	if err != nil {
		s.logger.Warn("recommendation submit failed", "kind", req.kind, "error", err)
		err = fmt.Errorf("%w: %w", ErrSubmit, err)
		s.mu.Lock()
		s.commit(State{
			Phase:  PhaseFailed,
			Kind:   req.kind,
			Status: task.StatusFailed,
			Error:  submitFailureMessage,
			Err:    err,
		})
		return err
	}

	s.mu.Lock()
	st := s.state
	st.TaskID = taskID
	s.commit(st)

	s.logger.Info("recommendation submitted", "kind", req.kind, "task_id", taskID)
	if err := s.tracker.Start(taskID); err != nil {
		err = fmt.Errorf("%w: %w", ErrSubmit, err)
		s.mu.Lock()
		s.commit(State{
			Phase:  PhaseFailed,
			Kind:   req.kind,
			TaskID: taskID,
			Status: task.StatusFailed,
			Error:  submitFailureMessage,
			Err:    err,
		})
		return err
	}
	return nil
}

// observe receives poller snapshots. Snapshots for a task other than the
// one in view are ignored.
func (s *Session) observe(snap poller.Snapshot) {
	s.mu.Lock()
	if s.state.Phase != PhaseGenerating || s.state.TaskID != snap.TaskID {
		s.mu.Unlock()
		return
	}

	st := s.state
	st.Status = snap.Status
	st.Attempt = snap.Attempt
	st.NextDelay = snap.NextDelay

	switch snap.Status {
	case task.StatusCompleted:
		st.Phase = PhaseDone
		st.Result = snap.Result
	case task.StatusFailed:
		st.Phase = PhaseFailed
		st.Error = snap.Error
		st.Err = snap.Err
	}
	s.commit(st)
}

// commit replaces the state, wakes waiters and notifies subscribers. It is
// called with s.mu held and releases it.
func (s *Session) commit(st State) {
	s.state = st
	close(s.changed)
	s.changed = make(chan struct{})
	subs := append([]func(State){}, s.subs...)
	view := st.clone()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(view)
	}
}
