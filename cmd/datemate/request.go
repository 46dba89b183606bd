package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/datemate/taskpoll/internal/recommend"
	"github.com/datemate/taskpoll/internal/task"
	"github.com/spf13/cobra"
)

// request is one itinerary or report request built from flags.
type request struct {
	kind      task.Type
	itinerary task.ItineraryPayload
	report    task.ReportPayload
}

// submit creates the backend task without following it.
func (r *request) submit(ctx context.Context, s recommend.Submitter) (string, error) {
	if r.kind == task.TypeReport {
		return s.SubmitReport(ctx, r.report)
	}
	return s.SubmitItinerary(ctx, r.itinerary)
}

// start submits through the session, which then follows the task.
func (r *request) start(ctx context.Context, s *recommend.Session) error {
	if r.kind == task.TypeReport {
		return s.RequestReport(ctx, r.report)
	}
	return s.RequestItinerary(ctx, r.itinerary)
}

func newItineraryCmd(cc *cliContext) *cobra.Command {
	var noWait bool
	req := &request{kind: task.TypeItinerary}

	cmd := &cobra.Command{
		Use:     "itinerary",
		Short:   "Request date course suggestions",
		Example: `  datemate itinerary --location "Seongsu-dong, Seoul" --emotion excited --preferences "cafe, exhibition"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.runRequest(cmd, req, noWait)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.itinerary.Location, "location", "", "where the date takes place")
	f.StringVar(&req.itinerary.Emotion, "emotion", "", "the mood you are after")
	f.StringVar(&req.itinerary.Preferences, "preferences", "", "comma-separated preferences")
	f.StringVar(&req.itinerary.AdditionalContext, "context", "", "anything else the planner should know")
	f.BoolVar(&noWait, "no-wait", false, "print the task id and exit without polling")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func newReportCmd(cc *cliContext) *cobra.Command {
	var noWait bool
	req := &request{kind: task.TypeReport}

	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Request the narrative summary of a monthly report",
		Example: `  datemate report --month 2026-03 --visits 6 --tags cafe,park`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.runRequest(cmd, req, noWait)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.report.Month, "month", "", "report month as YYYY-MM")
	f.IntVar(&req.report.VisitCount, "visits", 0, "number of visits in the month")
	f.StringSliceVar(&req.report.TopTags, "tags", nil, "most frequent place tags")
	f.StringVar(&req.report.Notes, "notes", "", "free-form notes for the summary")
	f.BoolVar(&noWait, "no-wait", false, "print the task id and exit without polling")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

// runRequest submits req and, unless noWait is set, follows the task until
// it settles. Interrupting the command cancels polling.
func (cc *cliContext) runRequest(cmd *cobra.Command, req *request, noWait bool) error {
	c, err := cc.client()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if noWait {
		id, err := req.submit(ctx, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s task submitted: %s\n", req.kind, id)
		return nil
	}

	session := recommend.NewSession(c, cc.poller(c), cc.logger)
	session.Subscribe(newProgressPrinter(out).print)

	if err := req.start(ctx, session); err != nil {
		return err
	}

	st, err := session.Wait(ctx)
	if err != nil {
		session.Cancel()
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, "cancelled")
			return nil
		}
		return err
	}
	return printOutcome(out, st)
}

func printOutcome(out io.Writer, st recommend.State) error {
	switch st.Phase {
	case recommend.PhaseDone:
		return printResult(out, st)
	case recommend.PhaseFailed:
		return fmt.Errorf("task %s failed: %s", st.TaskID, strings.TrimSpace(st.Error))
	default:
		fmt.Fprintln(out, st.Phase)
		return nil
	}
}
