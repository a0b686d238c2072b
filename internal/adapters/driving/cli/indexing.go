package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCollectionTarget string

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the search index",
	Long: `Re-populates the search index from every configured collection.

With the in-place strategy the current index is filled directly. With the
blue-green strategy a new index is built and the alias is swapped onto it
once it is complete.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Apply pending indexing tasks",
	Long: `Drains the pending-operations queue. Successful tasks are marked
complete; failed tasks stay pending for the next drain. A pending full-site
task turns the drain into a rebuild.`,
	Args: cobra.NoArgs,
	RunE: runDrain,
}

var indexCollectionCmd = &cobra.Command{
	Use:   "index-collection <collection>",
	Short: "Index every record of one collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexCollection,
}

func init() {
	indexCollectionCmd.Flags().StringVar(&indexCollectionTarget, "index", "",
		"target index (default: the current index)")

	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(drainCmd)
	rootCmd.AddCommand(indexCollectionCmd)
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	cmd.Println("Rebuilding search index...")
	if err := indexingService.RebuildIndex(cmd.Context()); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	cmd.Println("Search index rebuilt successfully.")
	return nil
}

func runDrain(cmd *cobra.Command, _ []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	report, err := indexingService.IndexPendingData(cmd.Context())
	if err != nil {
		return fmt.Errorf("drain failed: %w", err)
	}

	if report.Pending == 0 {
		cmd.Println("No pending tasks.")
		return nil
	}
	if report.FullRebuild {
		cmd.Println("A full-site task was pending; the index was rebuilt.")
	}
	cmd.Printf("Processed %d tasks: %d completed, %d failed.\n", report.Pending, report.Completed, report.Failed)
	return nil
}

func runIndexCollection(cmd *cobra.Command, args []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	collection := args[0]
	n, err := indexingService.IndexCollection(cmd.Context(), collection, indexCollectionTarget)
	if err != nil {
		return fmt.Errorf("indexing %s failed: %w", collection, err)
	}
	cmd.Printf("Indexed %d documents from %s.\n", n, collection)
	return nil
}
