// Package uploader pushes local documents into the hosted knowledge base.
//
// A batch upload enumerates matching files under a root, fingerprints each
// one (SHA-256 of content), and skips files whose fingerprint already has a
// confirmed remote resource in the ledger. The rest are submitted through a
// bounded worker pool; with waiting enabled, each ingestion job is polled
// with adaptive backoff until it succeeds, fails, or exhausts the wait
// budget. Every file gets exactly one outcome and failures never abort the
// batch.
//
//	up := uploader.New(client, led, uploader.NewPoller(client, cfg, logger), cfg, logger)
//	res, err := up.Upload(ctx, "./docs", uploader.Options{Recursive: true, Wait: true})
package uploader
