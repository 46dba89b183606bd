package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/datemate/taskpoll/internal/generation"
	"github.com/datemate/taskpoll/internal/task"
)

// StaticGenerator returns canned content built from the payload. It never
// calls the network.
type StaticGenerator struct{}

var _ generation.Generator = StaticGenerator{}

// GenerateItinerary implements generation.Generator.
func (StaticGenerator) GenerateItinerary(ctx context.Context, in task.ItineraryPayload) ([]generation.Itinerary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mood := in.Emotion
	if mood == "" {
		mood = "relaxed"
	}
	tags := splitTags(in.Preferences)

	themes := []struct {
		title string
		cost  int
	}{
		{title: "Slow walk and coffee", cost: 30000},
		{title: "Local food crawl", cost: 60000},
		{title: "Evening views", cost: 45000},
	}

	out := make([]generation.Itinerary, 0, len(themes))
	for i, th := range themes {
		places := []string{
			fmt.Sprintf("%s - starting point", in.Location),
		}
		if i < len(tags) {
			places = append(places, fmt.Sprintf("%s spot near %s", tags[i], in.Location))
		}
		out = append(out, generation.Itinerary{
			Title:              fmt.Sprintf("%s in %s", th.title, in.Location),
			Description:        fmt.Sprintf("A %s plan around %s.", mood, in.Location),
			SuggestedPlaces:    places,
			Tips:               []string{"Check opening hours before you go."},
			EstimatedTotalCost: th.cost,
		})
	}

	// Titles obey the same limit as model output.
	for i := range out {
		if r := []rune(out[i].Title); len(r) > generation.MaxTitleRunes {
			out[i].Title = string(r[:generation.MaxTitleRunes])
		}
	}
	return out, nil
}

// GenerateReportSummary implements generation.Generator.
func (StaticGenerator) GenerateReportSummary(ctx context.Context, in task.ReportPayload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "In %s you went on **%d** dates together.", in.Month, in.VisitCount)
	if len(in.TopTags) > 0 {
		fmt.Fprintf(&sb, " Your favourite kind of place was **%s**.", in.TopTags[0])
	}
	done := 0
	for _, c := range in.ChallengeProgress {
		if c.Completed {
			done++
		}
	}
	if len(in.ChallengeProgress) > 0 {
		fmt.Fprintf(&sb, " You completed %d of %d challenges.", done, len(in.ChallengeProgress))
	}
	sb.WriteString(" Here's to the next date!")
	return sb.String(), nil
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
