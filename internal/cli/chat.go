package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"kbridge/pkg/types"
)

var chatStrategy string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactively query the knowledge base",
	Long: `Chat starts a read-eval loop: each line you type is run as a search and
the top passages are printed back. Type "exit" or press Ctrl-D to quit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatStrategy, "strategy", "s", "", "search strategy: semantic, hybrid, or merged (default merged)")
}

func runChat(cmd *cobra.Command, args []string) error {
	strategy, err := types.ParseStrategy(chatStrategy)
	if err != nil {
		return err
	}

	client, err := newKBClient()
	if err != nil {
		return err
	}
	defer client.Close()

	dispatcher := newDispatcher(client)
	search := func(ctx context.Context, query string) ([]types.SearchResult, error) {
		return dispatcher.Search(ctx, query, strategy, askResultCount)
	}

	return chatLoop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), search)
}

// chatLoop drives the interactive session. A search failure is reported and
// the loop continues; only input errors end it.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, search func(context.Context, string) ([]types.SearchResult, error)) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.EqualFold(query, "exit") {
			return nil
		}

		fmt.Fprintf(out, "You asked: %s\n\n", query)

		results, err := search(ctx, query)
		if err != nil {
			fmt.Fprintf(out, "Search failed: %v\n\n", err)
			continue
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "No results found.")
			fmt.Fprintln(out)
			continue
		}

		printResults(out, results, askTruncateAt)
	}
}
