package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kbridge/internal/ledger"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger statistics and remote health",
	Long: `Status summarizes the local upload ledger and, when an endpoint is
configured, checks whether the knowledge-base service is reachable.
The ledger portion works offline.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of recent files to list")
}

func runStatus(cmd *cobra.Command, args []string) error {
	led, err := openLedger()
	if err != nil {
		return err
	}
	defer led.Close()

	ctx := cmd.Context()
	stats, err := led.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read ledger stats: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ledger: %s (%s driver)\n", stats.Path, ledger.BuildMode)
	fmt.Fprintf(out, "  Tracked files:        %d\n", stats.Records)
	fmt.Fprintf(out, "  Confirmed uploads:    %d\n", stats.Confirmed)
	fmt.Fprintf(out, "  Pending confirmation: %d\n", stats.Pending)

	records, err := led.Records(ctx, statusLimit)
	if err != nil {
		return fmt.Errorf("read ledger records: %w", err)
	}
	if len(records) > 0 {
		fmt.Fprintln(out, "\nRecent files:")
		for _, rec := range records {
			marker := "pending"
			if rec.RemoteID != "" {
				marker = "confirmed"
			}
			fmt.Fprintf(out, "  %-9s %s  %s\n", marker, rec.UpdatedAt.Format(time.RFC3339), rec.Path)
		}
	}

	// Remote health is best-effort: no endpoint configured is not an error
	// for a local status report.
	if cfg.RequireKB() != nil {
		return nil
	}
	client, err := newKBClient()
	if err != nil {
		return err
	}
	defer client.Close()

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Health(hctx); err != nil {
		fmt.Fprintf(out, "\nRemote service %s: unreachable (%v)\n", client.BaseURL(), err)
		return nil
	}
	fmt.Fprintf(out, "\nRemote service %s: ok\n", client.BaseURL())
	return nil
}
