package cli

import (
	"github.com/spf13/cobra"

	"kbridge/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `MCP serves the knowledge base to Model Context Protocol clients over
stdin/stdout. Tools cover searching, uploading, strategy comparison,
and ledger status.

Logs go to stderr (or KBRIDGE_LOG_FILE), never stdout, so the protocol
stream stays clean.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	client, err := newKBClient()
	if err != nil {
		return err
	}
	defer client.Close()

	led, err := openLedger()
	if err != nil {
		return err
	}
	defer led.Close()

	dispatcher := newDispatcher(client)
	comparer := newComparer(dispatcher)
	up := newUploader(client, led)

	srv := mcp.NewServer(dispatcher, comparer, up, led, logger)
	return srv.Serve()
}
