package generation

import (
	"context"

	"github.com/datemate/taskpoll/internal/task"
)

// Generator produces recommendation content with a language model.
// Implementations must honour ctx cancellation; the task runner cancels
// generation on timeout and on shutdown.
type Generator interface {
	// GenerateItinerary returns date-course suggestions for the payload,
	// in the order the model proposed them.
	GenerateItinerary(ctx context.Context, in task.ItineraryPayload) ([]Itinerary, error)

	// GenerateReportSummary returns the narrative paragraph of a monthly
	// relationship report.
	GenerateReportSummary(ctx context.Context, in task.ReportPayload) (string, error)
}
