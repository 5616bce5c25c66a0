// Package cli provides the command-line interface for kbridge.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kbridge/internal/config"
	"kbridge/internal/kb"
	"kbridge/internal/ledger"
	"kbridge/internal/searcher"
	"kbridge/internal/uploader"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	envFile string

	// Loaded by PersistentPreRunE
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "kbridge",
	Short: "Bridge local documents into a hosted knowledge base",
	Long: `kbridge uploads local documents into a hosted knowledge-base service,
tracks what has been ingested in a local ledger so unchanged files are
never sent twice, and searches the result under interchangeable
strategies (semantic, hybrid, merged).

Configuration comes from KBRIDGE_* environment variables, optionally
loaded from a dotenv file via --env-file.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute runs the root command with signal-aware cancellation, so Ctrl-C
// and SIGTERM drain in-flight work instead of killing it.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

// newKBClient builds the remote client, failing fast when no endpoint is
// configured.
func newKBClient() (*kb.Client, error) {
	if err := cfg.RequireKB(); err != nil {
		return nil, err
	}
	return kb.New(cfg.KBURL, cfg.KBAPIKey, logger)
}

func openLedger() (*ledger.Ledger, error) {
	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", cfg.LedgerPath, err)
	}
	return led, nil
}

func newDispatcher(client *kb.Client) *searcher.Dispatcher {
	return searcher.New(client, cfg, logger)
}

func newComparer(dispatcher *searcher.Dispatcher) *searcher.Comparer {
	return searcher.NewComparer(dispatcher, searcher.NewCache(cfg.CacheSize), logger)
}

func newUploader(client *kb.Client, led *ledger.Ledger) *uploader.Uploader {
	poller := uploader.NewPoller(client, cfg, logger)
	return uploader.New(client, led, poller, cfg, logger)
}
