package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/datemate/taskpoll/internal/generation"
	"github.com/datemate/taskpoll/internal/poller"
	"github.com/datemate/taskpoll/internal/recommend"
	"github.com/datemate/taskpoll/internal/task"
)

// progressPrinter prints one line per distinct in-progress state.
type progressPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

func (p *progressPrinter) print(st recommend.State) {
	if st.Phase != recommend.PhaseGenerating || st.NextDelay == 0 {
		return
	}
	line := progressLine(st.TaskID, st.Status, st.Attempt, st.NextDelay.String())

	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return
	}
	p.last = line
	fmt.Fprintln(p.out, line)
}

func progressLine(taskID string, status task.Status, attempt int, next string) string {
	return fmt.Sprintf("task %s: %s (poll %d, next in %s)", taskID, status, attempt, next)
}

func printSnapshot(out io.Writer, s poller.Snapshot) {
	switch s.Status {
	case task.StatusCompleted:
		fmt.Fprintf(out, "task %s: completed after %d polls\n", s.TaskID, s.Attempt)
	case task.StatusFailed:
		fmt.Fprintf(out, "task %s: failed after %d polls: %s\n", s.TaskID, s.Attempt, s.Error)
	default:
		fmt.Fprintln(out, progressLine(s.TaskID, s.Status, s.Attempt, s.NextDelay.String()))
	}
}

func printResult(out io.Writer, st recommend.State) error {
	if st.Kind == task.TypeReport {
		summary, err := st.Summary()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, summary)
		return nil
	}

	items, err := st.Itineraries()
	if err != nil {
		return err
	}
	printItineraries(out, items)
	return nil
}

func printItineraries(out io.Writer, items []generation.Itinerary) {
	if len(items) == 0 {
		fmt.Fprintln(out, "no suggestions returned")
		return
	}
	for i, it := range items {
		fmt.Fprintf(out, "%d. %s", i+1, it.Title)
		if it.EstimatedTotalCost > 0 {
			fmt.Fprintf(out, " (about %d KRW)", it.EstimatedTotalCost)
		}
		fmt.Fprintln(out)
		if it.Description != "" {
			fmt.Fprintf(out, "   %s\n", it.Description)
		}
		if len(it.SuggestedPlaces) > 0 {
			fmt.Fprintf(out, "   places: %s\n", strings.Join(it.SuggestedPlaces, ", "))
		}
		for _, tip := range it.Tips {
			fmt.Fprintf(out, "   tip: %s\n", tip)
		}
	}
}

// printRaw prints a result whose task type is unknown: a suggestion list, a
// summary string or, failing both, indented JSON.
func printRaw(out io.Writer, raw json.RawMessage) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return
	}

	var items []generation.Itinerary
	if err := json.Unmarshal(raw, &items); err == nil {
		printItineraries(out, items)
		return
	}

	var summary string
	if err := json.Unmarshal(raw, &summary); err == nil {
		fmt.Fprintln(out, summary)
		return
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Fprintln(out, string(raw))
		return
	}
	fmt.Fprintln(out, buf.String())
}
