package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

var (
	searchLimit  int
	searchFrom   int
	searchFields []string
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed content",
	Long: `Queries the search index through its alias. Text is matched against
the searchable fields with the ngram analyzer, so partial words match.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().IntVar(&searchFrom, "from", 0, "number of results to skip")
	searchCmd.Flags().StringSliceVarP(&searchFields, "field", "f", nil, "fields to match (default: searchable fields)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	result, err := searchService.Search(cmd.Context(), domain.SearchQuery{
		Text:   args[0],
		Fields: searchFields,
		Size:   searchLimit,
		From:   searchFrom,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, result)
	}
	return outputSearchTable(cmd, result)
}

func outputSearchJSON(cmd *cobra.Command, result *domain.SearchResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, result *domain.SearchResult) error {
	if len(result.Hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results (%d of %d):\n", len(result.Hits), result.Total)
	cmd.Println()
	for i, hit := range result.Hits {
		// Format: [N] Title (Score)
		title, _ := hit.Source["title"].(string)
		if title == "" {
			title = hit.ID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, hit.Score)
		cmd.Printf("      %s in %s\n", hit.ID, hit.Index)
		if desc, ok := hit.Source["description"].(string); ok && desc != "" {
			cmd.Printf("      %s\n", truncate(desc, 120))
		}
		cmd.Println()
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
