package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"kbridge/pkg/types"
)

var (
	searchStrategy string
	searchLimit    int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the knowledge base",
	Long: `Search runs a query against the knowledge-base service and prints the
ranked results.

Examples:
  kbridge search "warranty period"
  kbridge search "error budget" --strategy hybrid -n 5
  kbridge search "quarterly revenue" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchStrategy, "strategy", "s", "", "search strategy: semantic, hybrid, or merged (default merged)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum results (0 uses the configured default)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "emit results as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	strategy, err := types.ParseStrategy(searchStrategy)
	if err != nil {
		return err
	}

	client, err := newKBClient()
	if err != nil {
		return err
	}
	defer client.Close()

	results, err := newDispatcher(client).Search(cmd.Context(), args[0], strategy, searchLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	fmt.Fprintf(out, "Found %d results:\n\n", len(results))
	printResults(out, results, 240)
	return nil
}

// printResults renders ranked results with scores, truncating passages so
// terminal output stays scannable.
func printResults(out io.Writer, results []types.SearchResult, truncAt int) {
	for i, r := range results {
		fmt.Fprintf(out, "%d. [%.3f] %s\n", i+1, r.Score, r.Source)
		fmt.Fprintf(out, "   %s\n\n", truncate(r.Text, truncAt))
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
