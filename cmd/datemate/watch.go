package main

import (
	"fmt"
	"time"

	"github.com/datemate/taskpoll/internal/poller"
	"github.com/spf13/cobra"
)

func newWatchCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <task-id>",
		Short: "Poll an existing task until it completes or fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cc.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			done := make(chan poller.Snapshot, 1)
			p := cc.poller(c)
			p.OnUpdate(func(s poller.Snapshot) {
				printSnapshot(out, s)
				if s.Terminal() {
					done <- s
				}
			})

			if err := p.Start(args[0]); err != nil {
				return err
			}

			select {
			case s := <-done:
				if s.Err != nil {
					return fmt.Errorf("task %s: %w", s.TaskID, s.Err)
				}
				printRaw(out, s.Result)
				return nil
			case <-cmd.Context().Done():
				p.Cancel()
				fmt.Fprintln(out, "cancelled")
				return nil
			}
		},
	}
}

func newStatusCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Fetch the current status of a task once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cc.client()
			if err != nil {
				return err
			}
			t, err := c.GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "task:   %s\n", t.ID)
			if t.Type != "" {
				fmt.Fprintf(out, "type:   %s\n", t.Type)
			}
			fmt.Fprintf(out, "status: %s\n", t.Status)
			if t.CreatedAt != nil {
				fmt.Fprintf(out, "created: %s\n", t.CreatedAt.Format(time.RFC3339))
			}
			if t.FinishedAt != nil {
				fmt.Fprintf(out, "finished: %s\n", t.FinishedAt.Format(time.RFC3339))
			}
			if t.Error != "" {
				fmt.Fprintf(out, "error:  %s\n", t.Error)
			}
			printRaw(out, t.Result)
			return nil
		},
	}
}

func newDeleteCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task record from the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cc.client()
			if err != nil {
				return err
			}
			if err := c.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
