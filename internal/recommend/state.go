package recommend

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/datemate/taskpoll/internal/generation"
	"github.com/datemate/taskpoll/internal/task"
)

// Phase is the coarse state of the recommendation view.
type Phase string

// Phases of a Session
const (
	PhaseIdle       Phase = "idle"
	PhaseGenerating Phase = "generating"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
	PhaseCancelled  Phase = "cancelled"
)

// Settled reports whether the phase will not change without a new request.
func (p Phase) Settled() bool {
	return p == PhaseDone || p == PhaseFailed || p == PhaseCancelled
}

// State is what a renderer needs to draw the recommendation view.
type State struct {
	Phase  Phase
	Kind   task.Type
	TaskID string

	// Status and Attempt mirror the last poller snapshot
	Status    task.Status
	Attempt   int
	NextDelay time.Duration

	Result json.RawMessage
	Error  string
	Err    error
}

// Itineraries decodes the result of a finished itinerary request.
func (s State) Itineraries() ([]generation.Itinerary, error) {
	if s.Phase != PhaseDone || s.Kind != task.TypeItinerary {
		return nil, fmt.Errorf("no itinerary result in phase %s", s.Phase)
	}
	var items []generation.Itinerary
	if err := json.Unmarshal(s.Result, &items); err != nil {
		return nil, fmt.Errorf("failed to decode itineraries: %w", err)
	}
	return items, nil
}

// Summary decodes the result of a finished report request.
func (s State) Summary() (string, error) {
	if s.Phase != PhaseDone || s.Kind != task.TypeReport {
		return "", fmt.Errorf("no report summary in phase %s", s.Phase)
	}
	var summary string
	if err := json.Unmarshal(s.Result, &summary); err != nil {
		return "", fmt.Errorf("failed to decode report summary: %w", err)
	}
	return summary, nil
}

func (s State) clone() State {
	if s.Result != nil {
		s.Result = append(json.RawMessage(nil), s.Result...)
	}
	return s
}
