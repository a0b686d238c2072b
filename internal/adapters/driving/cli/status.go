package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and queue status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	status, err := indexingService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	reachable := "yes"
	if !status.Reachable {
		reachable = "no"
	}
	targets := strings.Join(status.AliasTargets, ", ")
	if targets == "" {
		targets = "(none)"
	}

	cmd.Printf("Search engine reachable: %s\n", reachable)
	cmd.Printf("Alias:                   %s -> %s\n", status.Descriptor.AliasName, targets)
	cmd.Printf("Current index:           %s\n", status.Descriptor.CurrentName)
	cmd.Printf("Next rebuild index:      %s\n", status.Descriptor.TemporaryName)
	cmd.Printf("Pending tasks:           %d\n", status.PendingTasks)

	if collections != nil {
		names := collections.ConfiguredCollections()
		cmd.Printf("Collections:             %d configured\n", len(names))
		for _, name := range names {
			cmd.Printf("  - %s\n", name)
		}
	}
	return nil
}
