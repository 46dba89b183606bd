package generation

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/datemate/taskpoll/internal/task"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"join":     func(s []string) string { return joinOrNone(s) },
	"emotions": formatEmotionStats,
	"deref":    func(p *int) int { return *p },
}).ParseFS(promptFS, "prompts/*.tmpl"))

type reportPromptData struct {
	task.ReportPayload
	Challenges     string
	HasPreferences bool
}

// ItineraryPrompt renders the itinerary prompt for a payload.
func ItineraryPrompt(in task.ItineraryPayload) (string, error) {
	return render("itinerary.tmpl", in)
}

// ReportPrompt renders the monthly report prompt for a payload.
func ReportPrompt(in task.ReportPayload) (string, error) {
	data := reportPromptData{
		ReportPayload: in,
		Challenges:    formatChallenges(in.ChallengeProgress),
		HasPreferences: len(in.CouplePreferenceTags) > 0 ||
			len(in.CoupleEmotionGoals) > 0 ||
			len(in.PlanEmotionGoals) > 0 ||
			in.CoupleBudget != nil,
	}
	return render("report.tmpl", data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func formatChallenges(cs []task.ChallengeProgress) string {
	if len(cs) == 0 {
		return "no challenges"
	}
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		title := c.Title
		if title == "" {
			title = c.ID
		}
		if title == "" {
			title = "unknown"
		}
		if c.Completed {
			parts = append(parts, title+": completed")
		} else {
			parts = append(parts, fmt.Sprintf("%s: in progress (%d/%d)", title, c.Current, c.Goal))
		}
	}
	return strings.Join(parts, "; ")
}

// formatEmotionStats lists counts in descending order so the prompt is stable.
func formatEmotionStats(stats map[string]int) string {
	if len(stats) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if stats[keys[i]] == stats[keys[j]] {
			return keys[i] < keys[j]
		}
		return stats[keys[i]] > stats[keys[j]]
	})
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, stats[k]))
	}
	return strings.Join(parts, ", ")
}

func joinOrNone(s []string) string {
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, ", ")
}
