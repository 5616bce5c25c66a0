package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"kbridge/pkg/types"
)

const (
	// askResultCount bounds how many passages a question pulls back.
	askResultCount = 3
	// askTruncateAt keeps answers readable in a terminal.
	askTruncateAt = 180
)

var askStrategy string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a one-shot question against the knowledge base",
	Long: `Ask runs a single question and prints the most relevant passages.

Examples:
  kbridge ask "how long is the warranty?"
  kbridge ask "who approves travel expenses?" --strategy semantic`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askStrategy, "strategy", "s", "", "search strategy: semantic, hybrid, or merged (default merged)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	strategy, err := types.ParseStrategy(askStrategy)
	if err != nil {
		return err
	}

	client, err := newKBClient()
	if err != nil {
		return err
	}
	defer client.Close()

	question := args[0]
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Asking: %s\n\n", question)

	results, err := newDispatcher(client).Search(cmd.Context(), question, strategy, askResultCount)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	printResults(out, results, askTruncateAt)
	return nil
}
