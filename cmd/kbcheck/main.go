// kbcheck is a manual probe: it verifies the configured knowledge-base
// service end to end by uploading a throwaway document and searching for
// it under every strategy. Run it against a real endpoint.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"kbridge/internal/config"
	"kbridge/internal/kb"
	"kbridge/internal/ledger"
	"kbridge/internal/searcher"
	"kbridge/internal/uploader"
	"kbridge/pkg/types"
)

func main() {
	fmt.Println("Checking knowledge-base connectivity...")

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireKB(); err != nil {
		log.Fatalf("Configuration incomplete: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	client, err := kb.New(cfg.KBURL, cfg.KBAPIKey, logger)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()

	// Health first: everything else is noise when the endpoint is down.
	hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = client.Health(hctx)
	cancel()
	if err != nil {
		log.Fatalf("Health check failed for %s: %v", client.BaseURL(), err)
	}
	fmt.Printf("  Service %s: reachable\n", client.BaseURL())

	// Upload a throwaway document through a throwaway ledger.
	tmpDir, err := os.MkdirTemp("", "kbcheck-*")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	probeFile := filepath.Join(tmpDir, "probe.txt")
	body := fmt.Sprintf("kbcheck probe written at %s", time.Now().Format(time.RFC3339))
	if err := os.WriteFile(probeFile, []byte(body), 0644); err != nil {
		log.Fatalf("Failed to write probe file: %v", err)
	}

	led, err := ledger.Open(":memory:")
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}
	defer led.Close()

	poller := uploader.NewPoller(client, cfg, logger)
	up := uploader.New(client, led, poller, cfg, logger)

	fmt.Println("\nUploading probe document...")
	batch, err := up.Upload(ctx, probeFile, uploader.Options{Wait: true})
	if err != nil {
		log.Fatalf("Upload failed: %v", err)
	}

	fmt.Printf("\nUpload Statistics:\n")
	fmt.Printf("  Uploaded: %d\n", batch.Uploaded)
	fmt.Printf("  Skipped: %d\n", batch.Skipped)
	fmt.Printf("  Failed: %d\n", batch.Failed)
	fmt.Printf("  Timed Out: %d\n", batch.TimedOut)
	fmt.Printf("  Duration: %v\n", batch.Elapsed)

	for _, o := range batch.Outcomes {
		if o.Detail != "" {
			fmt.Printf("  - %s: %s (%s)\n", o.Path, o.Status, o.Detail)
		}
	}

	if batch.Uploaded != 1 {
		fmt.Println("\n✗ FAILURE: Probe document was not ingested!")
		os.Exit(1)
	}

	// One search per strategy against the fresh document.
	dispatcher := searcher.New(client, cfg, logger)

	fmt.Println("\nSearching under each strategy...")
	hits := 0
	for _, strategy := range types.Strategies() {
		results, err := dispatcher.Search(ctx, "kbcheck probe", strategy, 3)
		if err != nil {
			fmt.Printf("  %s: error: %v\n", strategy, err)
			continue
		}
		fmt.Printf("  %s: %d results\n", strategy, len(results))
		hits += len(results)
	}

	fmt.Printf("\nVerification:\n")
	fmt.Printf("  Results across strategies: %d\n", hits)

	if hits > 0 {
		fmt.Println("\n✓ SUCCESS: Upload and search both work!")
	} else {
		fmt.Println("\n✗ FAILURE: No strategy returned results!")
		os.Exit(1)
	}
}
