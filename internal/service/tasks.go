package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/datemate/taskpoll/internal/task"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TaskSubmitter queues a stored task for execution. *task.Runner implements it.
type TaskSubmitter interface {
	Submit(ctx context.Context, t *task.Task) error
}

// TaskService manages asynchronous recommendation tasks.
type TaskService interface {
	// Submit validates the request, stores a pending task and queues it.
	Submit(ctx context.Context, req task.SubmitRequest) (*task.Task, error)

	// Get returns the current status record of a task.
	Get(ctx context.Context, id string) (*task.Task, error)

	// Delete removes a task record.
	Delete(ctx context.Context, id string) error
}

type taskService struct {
	store     task.Store
	submitter TaskSubmitter
	validate  *validator.Validate
	newID     func() string
	logger    *slog.Logger
}

// NewTaskService creates a TaskService over store and submitter.
func NewTaskService(store task.Store, submitter TaskSubmitter, logger *slog.Logger) (TaskService, error) {
	if store == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if submitter == nil {
		return nil, errors.New("task submitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &taskService{
		store:     store,
		submitter: submitter,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		newID:     newTaskID,
		logger:    logger.With("component", "task_service"),
	}, nil
}

// newTaskID returns a random UUID as 32 lowercase hex digits.
func newTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *taskService) Submit(ctx context.Context, req task.SubmitRequest) (*task.Task, error) {
	payload, err := s.normalizePayload(req.Type, req.Payload)
	if err != nil {
		return nil, err
	}

	t := &task.Task{
		ID:      s.newID(),
		Status:  task.StatusPending,
		Type:    req.Type,
		Payload: payload,
	}

	if err := s.submitter.Submit(ctx, t); err != nil {
		if errors.Is(err, task.ErrQueueFull) {
			s.logger.WarnContext(ctx, "task rejected, queue full", "task_id", t.ID, "task_type", t.Type)
			return nil, fmt.Errorf("%w: %w", ErrBusy, err)
		}
		return nil, fmt.Errorf("failed to submit task: %w", err)
	}

	s.logger.InfoContext(ctx, "task submitted", "task_id", t.ID, "task_type", t.Type)
	return t.Clone(), nil
}

// normalizePayload decodes and validates the payload for its type and
// re-encodes it, so the stored payload contains only known fields.
func (s *taskService) normalizePayload(typ task.Type, raw json.RawMessage) (json.RawMessage, error) {
	var payload any
	switch typ {
	case task.TypeItinerary:
		payload = &task.ItineraryPayload{}
	case task.TypeReport:
		payload = &task.ReportPayload{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, typ)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := s.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	normalized, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return normalized, nil
}

func (s *taskService) Get(ctx context.Context, id string) (*task.Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *taskService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "task deleted", "task_id", id)
	return nil
}
