package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/datemate/taskpoll/internal/generation"
	"github.com/datemate/taskpoll/internal/task"
)

// Messages stored on failed tasks. Clients show them to users as-is.
const (
	msgGenerationFailed = "recommendation generation failed, please try again"
	msgContentBlocked   = "the request was blocked by content safety filters"
	msgInvalidResponse  = "the AI response could not be understood, please try again"
	msgBadPayload       = "task payload is invalid"
)

// HandlerRegistry binds handlers to task types. *task.Runner implements it.
type HandlerRegistry interface {
	Register(typ task.Type, h task.Handler)
}

// RegisterTaskHandlers binds the generator-backed handlers for every task
// type.
func RegisterTaskHandlers(r HandlerRegistry, gen generation.Generator) {
	r.Register(task.TypeItinerary, ItineraryHandler(gen))
	r.Register(task.TypeReport, ReportHandler(gen))
}

// ItineraryHandler returns the handler for itinerary tasks. The result is
// the ordered list of suggestions.
func ItineraryHandler(gen generation.Generator) task.Handler {
	return task.HandlerFunc(func(ctx context.Context, t *task.Task) (json.RawMessage, error) {
		var in task.ItineraryPayload
		if err := json.Unmarshal(t.Payload, &in); err != nil {
			return nil, task.Failure(msgBadPayload, err)
		}

		items, err := gen.GenerateItinerary(ctx, in)
		if err != nil {
			return nil, generationFailure(ctx, err)
		}
		if items == nil {
			items = []generation.Itinerary{}
		}
		return marshalResult(items)
	})
}

// ReportHandler returns the handler for monthly report tasks. The result is
// the summary string.
func ReportHandler(gen generation.Generator) task.Handler {
	return task.HandlerFunc(func(ctx context.Context, t *task.Task) (json.RawMessage, error) {
		var in task.ReportPayload
		if err := json.Unmarshal(t.Payload, &in); err != nil {
			return nil, task.Failure(msgBadPayload, err)
		}

		summary, err := gen.GenerateReportSummary(ctx, in)
		if err != nil {
			return nil, generationFailure(ctx, err)
		}
		return marshalResult(summary)
	})
}

// generationFailure attaches a user-facing message to a generator error.
// Context errors pass through so the runner reports timeouts and shutdowns.
func generationFailure(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	switch {
	case errors.Is(err, generation.ErrContentBlocked):
		return task.Failure(msgContentBlocked, err)
	case errors.Is(err, generation.ErrInvalidResponse):
		return task.Failure(msgInvalidResponse, err)
	default:
		return task.Failure(msgGenerationFailed, err)
	}
}

func marshalResult(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task result: %w", err)
	}
	return b, nil
}
