package cli

import (
	"github.com/spf13/cobra"

	"kbridge/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP search API and dashboard",
	Long: `Serve exposes the knowledge base over HTTP: a JSON search endpoint at
POST /search, a health probe at GET /healthz, and an HTML dashboard at
GET / with a strategy comparison page at GET /compare.

When KBRIDGE_API_KEY is set, POST /search requires a matching X-API-Key
header. The dashboard and health probe stay open.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides KBRIDGE_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

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
	srv := server.New(dispatcher, comparer, led, client, cfg, logger)
	return srv.Start(cmd.Context())
}
