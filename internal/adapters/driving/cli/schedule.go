package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var scheduleHistory int

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show scheduled tasks and their recent runs",
	Long: `Lists the drain and rebuild tasks persisted by the scheduler, with the
last and next run times. With --history, the latest results of each task
are shown as well.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().IntVar(&scheduleHistory, "history", 0, "number of past runs to show per task")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	if schedulerSvc == nil {
		return errors.New("scheduler not configured")
	}

	tasks, err := schedulerSvc.Tasks(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing scheduled tasks: %w", err)
	}
	if len(tasks) == 0 {
		cmd.Println("No scheduled tasks. They are created the first time serve runs.")
		return nil
	}

	for i := range tasks {
		t := tasks[i]
		state := "enabled"
		if !t.Enabled {
			state = "disabled"
		}
		cmd.Printf("%s (%s, every %s)\n", t.Name, state, t.Interval)
		cmd.Printf("  Last run:  %s\n", formatTime(t.LastRun))
		cmd.Printf("  Next run:  %s\n", formatTime(t.NextRun))
		if t.LastError != "" {
			cmd.Printf("  Last error: %s\n", t.LastError)
		}

		if scheduleHistory <= 0 {
			continue
		}
		results, err := schedulerSvc.History(cmd.Context(), t.ID, scheduleHistory)
		if err != nil {
			return fmt.Errorf("reading history of %s: %w", t.ID, err)
		}
		for _, r := range results {
			outcome := "ok"
			if !r.Success {
				outcome = "FAIL " + r.Error
			}
			cmd.Printf("    %s  %-6s %d items  %s\n",
				formatTime(r.StartedAt), r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond), r.ItemsProcessed, outcome)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
