package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dietnotify/internal/app"
)

func newJobsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs <user-id>",
		Short: "Rebuild the job set from the store and list one user's reminders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Dry-run dispatch: restoring jobs may trigger catch-up sends
			// and an inspection command must not push real notifications.
			a, err := app.New(ctx, *configPath, app.WithDispatchDriver("dryrun"))
			if err != nil {
				return err
			}
			defer a.Stop(context.Background())
			a.Start(ctx)

			jobs := a.Engine().GetUserJobs(args[0])
			if len(jobs) == 0 {
				fmt.Println("no reminders scheduled")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "JOB\tNAME\tFIRES AT\tNEXT RUN")
			for _, j := range jobs {
				next := "-"
				if j.NextRun != nil {
					next = j.NextRun.Format("2006-01-02 15:04 MST")
				}
				fmt.Fprintf(w, "%s\t%s\t%02d:%02d\t%s\n", j.ID, j.Name, j.Trigger.Hour, j.Trigger.Minute, next)
			}
			return w.Flush()
		},
	}
}
