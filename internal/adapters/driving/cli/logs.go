package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

var logsLimit int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent indexing outcomes",
	Args:  cobra.NoArgs,
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 20, "number of entries to show")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, _ []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	entries, err := indexingService.Logs(cmd.Context(), logsLimit)
	if err != nil {
		return fmt.Errorf("reading logs: %w", err)
	}

	if len(entries) == 0 {
		cmd.Println("No indexing activity recorded.")
		return nil
	}

	for _, e := range entries {
		mark := "ok  "
		if e.Outcome == domain.OutcomeFailure {
			mark = "FAIL"
		}
		cmd.Printf("%s  %s  %s\n", e.Timestamp.Local().Format(time.DateTime), mark, e.Message)
	}
	return nil
}
