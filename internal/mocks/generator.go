package mocks

import (
	"context"
	"sync"

	"github.com/datemate/taskpoll/internal/generation"
	"github.com/datemate/taskpoll/internal/task"
)

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	// GenerateItineraryFn overrides the itinerary behavior when set
	GenerateItineraryFn func(ctx context.Context, in task.ItineraryPayload) ([]generation.Itinerary, error)

	// GenerateReportSummaryFn overrides the report behavior when set
	GenerateReportSummaryFn func(ctx context.Context, in task.ReportPayload) (string, error)

	// Default response values
	Itineraries []generation.Itinerary
	Summary     string
	Err         error

	mu             sync.Mutex
	itineraryCalls []task.ItineraryPayload
	reportCalls    []task.ReportPayload
}

var _ generation.Generator = (*MockGenerator)(nil)

// GenerateItinerary implements generation.Generator
func (m *MockGenerator) GenerateItinerary(ctx context.Context, in task.ItineraryPayload) ([]generation.Itinerary, error) {
	m.mu.Lock()
	m.itineraryCalls = append(m.itineraryCalls, in)
	m.mu.Unlock()

	if m.GenerateItineraryFn != nil {
		return m.GenerateItineraryFn(ctx, in)
	}
	return m.Itineraries, m.Err
}

// GenerateReportSummary implements generation.Generator
func (m *MockGenerator) GenerateReportSummary(ctx context.Context, in task.ReportPayload) (string, error) {
	m.mu.Lock()
	m.reportCalls = append(m.reportCalls, in)
	m.mu.Unlock()

	if m.GenerateReportSummaryFn != nil {
		return m.GenerateReportSummaryFn(ctx, in)
	}
	return m.Summary, m.Err
}

// ItineraryCalls returns the payloads passed to GenerateItinerary, in order
func (m *MockGenerator) ItineraryCalls() []task.ItineraryPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]task.ItineraryPayload(nil), m.itineraryCalls...)
}

// ReportCalls returns the payloads passed to GenerateReportSummary, in order
func (m *MockGenerator) ReportCalls() []task.ReportPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]task.ReportPayload(nil), m.reportCalls...)
}

// NewMockGeneratorWithError creates a MockGenerator that fails every call with err
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{Err: err}
}

// MockGeneratorWithContentBlocked simulates the model refusing the prompt
func MockGeneratorWithContentBlocked() *MockGenerator {
	return &MockGenerator{Err: generation.ErrContentBlocked}
}

// MockGeneratorWithTransientFailure simulates a retryable upstream failure
func MockGeneratorWithTransientFailure() *MockGenerator {
	return &MockGenerator{Err: generation.ErrTransientFailure}
}
