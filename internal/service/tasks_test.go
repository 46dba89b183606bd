package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"

	"github.com/datemate/taskpoll/internal/service"
	"github.com/datemate/taskpoll/internal/store"
	"github.com/datemate/taskpoll/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	mu        sync.Mutex
	store     task.Store
	submitted []*task.Task
	err       error
}

func (f *fakeSubmitter) Submit(ctx context.Context, t *task.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if err := f.store.Create(ctx, t); err != nil {
		return err
	}
	f.submitted = append(f.submitted, t.Clone())
	return nil
}

func newTestService(t *testing.T) (service.TaskService, *fakeSubmitter, task.Store) {
	t.Helper()
	s := store.NewMemoryTaskStore()
	sub := &fakeSubmitter{store: s}
	svc, err := service.NewTaskService(s, sub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return svc, sub, s
}

func TestNewTaskServiceValidatesDependencies(t *testing.T) {
	_, err := service.NewTaskService(nil, &fakeSubmitter{}, nil)
	assert.Error(t, err)

	_, err = service.NewTaskService(store.NewMemoryTaskStore(), nil, nil)
	assert.Error(t, err)
}

func TestSubmitItinerary(t *testing.T) {
	svc, sub, s := newTestService(t)

	created, err := svc.Submit(context.Background(), task.SubmitRequest{
		Type:    task.TypeItinerary,
		Payload: json.RawMessage(`{"emotion":"calm","location":"Jeju","unknown_field":true}`),
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), created.ID)
	assert.Equal(t, task.StatusPending, created.Status)
	assert.Equal(t, task.TypeItinerary, created.Type)

	require.Len(t, sub.submitted, 1)
	assert.JSONEq(t, `{"emotion":"calm","preferences":"","location":"Jeju"}`, string(sub.submitted[0].Payload))

	stored, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, stored.Status)
}

func TestSubmitGeneratesDistinctIDs(t *testing.T) {
	svc, _, _ := newTestService(t)
	req := task.SubmitRequest{Type: task.TypeReport, Payload: json.RawMessage(`{"month":"2026-01"}`)}

	a, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	b, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     task.SubmitRequest
		wantErr error
	}{
		{
			name:    "unknown type",
			req:     task.SubmitRequest{Type: "weather", Payload: json.RawMessage(`{}`)},
			wantErr: service.ErrUnsupportedType,
		},
		{
			name:    "missing payload",
			req:     task.SubmitRequest{Type: task.TypeItinerary},
			wantErr: service.ErrInvalidPayload,
		},
		{
			name:    "itinerary without location",
			req:     task.SubmitRequest{Type: task.TypeItinerary, Payload: json.RawMessage(`{"emotion":"happy"}`)},
			wantErr: service.ErrInvalidPayload,
		},
		{
			name:    "malformed json",
			req:     task.SubmitRequest{Type: task.TypeItinerary, Payload: json.RawMessage(`{"location":`)},
			wantErr: service.ErrInvalidPayload,
		},
		{
			name:    "report with bad month",
			req:     task.SubmitRequest{Type: task.TypeReport, Payload: json.RawMessage(`{"month":"February"}`)},
			wantErr: service.ErrInvalidPayload,
		},
		{
			name:    "report with negative visits",
			req:     task.SubmitRequest{Type: task.TypeReport, Payload: json.RawMessage(`{"month":"2026-02","visit_count":-1}`)},
			wantErr: service.ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, sub, _ := newTestService(t)
			_, err := svc.Submit(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, sub.submitted)
		})
	}
}

func TestSubmitQueueFull(t *testing.T) {
	svc, sub, _ := newTestService(t)
	sub.err = task.ErrQueueFull

	_, err := svc.Submit(context.Background(), task.SubmitRequest{
		Type:    task.TypeItinerary,
		Payload: json.RawMessage(`{"location":"Seoul"}`),
	})
	assert.ErrorIs(t, err, service.ErrBusy)
	assert.ErrorIs(t, err, task.ErrQueueFull)
}

func TestSubmitOtherError(t *testing.T) {
	svc, sub, _ := newTestService(t)
	sub.err = errors.New("disk full")

	_, err := svc.Submit(context.Background(), task.SubmitRequest{
		Type:    task.TypeItinerary,
		Payload: json.RawMessage(`{"location":"Seoul"}`),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrBusy)
}

func TestGetAndDelete(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Submit(ctx, task.SubmitRequest{
		Type:    task.TypeReport,
		Payload: json.RawMessage(`{"month":"2026-06","visit_count":2}`),
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, task.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), task.ErrNotFound)
}
