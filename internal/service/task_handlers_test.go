package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/datemate/taskpoll/internal/generation"
	"github.com/datemate/taskpoll/internal/mocks"
	"github.com/datemate/taskpoll/internal/service"
	"github.com/datemate/taskpoll/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registry map[task.Type]task.Handler

func (r registry) Register(typ task.Type, h task.Handler) { r[typ] = h }

func TestRegisterTaskHandlers(t *testing.T) {
	reg := registry{}
	service.RegisterTaskHandlers(reg, &mocks.MockGenerator{})

	assert.Contains(t, reg, task.TypeItinerary)
	assert.Contains(t, reg, task.TypeReport)
}

func TestItineraryHandler(t *testing.T) {
	gen := &mocks.MockGenerator{Itineraries: []generation.Itinerary{{
		Title:              "Market and museum",
		SuggestedPlaces:    []string{"Gwangjang Market"},
		Tips:               []string{},
		EstimatedTotalCost: 40000,
	}}}
	h := service.ItineraryHandler(gen)

	result, err := h.Handle(context.Background(), &task.Task{
		ID:      "t1",
		Type:    task.TypeItinerary,
		Payload: json.RawMessage(`{"location":"Jongno","emotion":"curious"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "Jongno", gen.ItineraryCalls()[0].Location)
	assert.JSONEq(t, `[{
		"title": "Market and museum",
		"description": "",
		"suggested_places": ["Gwangjang Market"],
		"tips": [],
		"estimated_total_cost": 40000
	}]`, string(result))
}

func TestItineraryHandlerEmptyResultIsList(t *testing.T) {
	h := service.ItineraryHandler(&mocks.MockGenerator{})

	result, err := h.Handle(context.Background(), &task.Task{Payload: json.RawMessage(`{"location":"x"}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(result))
}

func TestReportHandler(t *testing.T) {
	gen := &mocks.MockGenerator{Summary: "**Great** month!"}
	h := service.ReportHandler(gen)

	result, err := h.Handle(context.Background(), &task.Task{
		Payload: json.RawMessage(`{"month":"2026-07","visit_count":6}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `"**Great** month!"`, string(result))
	assert.Equal(t, 6, gen.ReportCalls()[0].VisitCount)
}

func TestHandlerFailureMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "blocked",
			err:     fmt.Errorf("%w: safety", generation.ErrContentBlocked),
			message: "the request was blocked by content safety filters",
		},
		{
			name:    "invalid response",
			err:     fmt.Errorf("%w: not a list", generation.ErrInvalidResponse),
			message: "the AI response could not be understood, please try again",
		},
		{
			name:    "other",
			err:     errors.New("quota exceeded for key AIza..."),
			message: "recommendation generation failed, please try again",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := service.ReportHandler(mocks.NewMockGeneratorWithError(tt.err))

			_, err := h.Handle(context.Background(), &task.Task{Payload: json.RawMessage(`{"month":"2026-07"}`)})
			require.Error(t, err)

			var failure *task.FailureError
			require.True(t, errors.As(err, &failure))
			assert.Equal(t, tt.message, failure.Message)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestHandlerPassesContextErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := service.ItineraryHandler(mocks.NewMockGeneratorWithError(errors.New("aborted")))
	_, err := h.Handle(ctx, &task.Task{Payload: json.RawMessage(`{"location":"x"}`)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandlerRejectsBadPayload(t *testing.T) {
	h := service.ItineraryHandler(&mocks.MockGenerator{})

	_, err := h.Handle(context.Background(), &task.Task{Payload: json.RawMessage(`[`)})
	var failure *task.FailureError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "task payload is invalid", failure.Message)
}
