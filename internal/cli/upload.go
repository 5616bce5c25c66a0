package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"kbridge/internal/uploader"
	"kbridge/pkg/types"
)

var (
	uploadRecursive   bool
	uploadWait        bool
	uploadNoWait      bool
	uploadConcurrency int
	uploadExtensions  []string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a file or directory to the knowledge base",
	Long: `Upload sends a file, or every eligible file under a directory, to the
knowledge-base service. Files whose content has not changed since the
last confirmed upload are skipped via the local ledger.

By default the command waits for the service to finish ingesting each
file before reporting it as uploaded. Use --no-wait to return as soon
as the uploads are accepted.

Examples:
  kbridge upload ./docs --recursive
  kbridge upload report.pdf --no-wait
  kbridge upload ./notes -r --ext .md --ext .txt`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadRecursive, "recursive", "r", false, "descend into subdirectories")
	uploadCmd.Flags().BoolVar(&uploadWait, "wait", true, "wait for ingestion jobs to complete")
	uploadCmd.Flags().BoolVar(&uploadNoWait, "no-wait", false, "return once uploads are accepted, without polling jobs")
	uploadCmd.Flags().IntVarP(&uploadConcurrency, "concurrency", "c", 0, "parallel uploads (0 uses the configured default)")
	uploadCmd.Flags().StringSliceVar(&uploadExtensions, "ext", nil, "restrict to these file extensions (e.g. .md,.pdf)")
	uploadCmd.MarkFlagsMutuallyExclusive("wait", "no-wait")
}

func runUpload(cmd *cobra.Command, args []string) error {
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

	up := newUploader(client, led)
	batch, err := up.Upload(cmd.Context(), args[0], uploader.Options{
		Recursive:   uploadRecursive,
		Wait:        uploadWait && !uploadNoWait,
		Concurrency: uploadConcurrency,
		Extensions:  uploadExtensions,
	})
	if err != nil {
		return err
	}

	printBatch(cmd.OutOrStdout(), batch)

	if n := batch.Failed + batch.TimedOut; n > 0 {
		return fmt.Errorf("%d of %d files did not complete", n, len(batch.Outcomes))
	}
	return nil
}

func printBatch(out io.Writer, batch *types.BatchResult) {
	for _, o := range batch.Outcomes {
		if o.Detail != "" {
			fmt.Fprintf(out, "%-10s %s (%s)\n", o.Status, o.Path, o.Detail)
		} else {
			fmt.Fprintf(out, "%-10s %s\n", o.Status, o.Path)
		}
	}
	fmt.Fprintf(out, "\n%d uploaded, %d skipped, %d failed, %d timed out in %s\n",
		batch.Uploaded, batch.Skipped, batch.Failed, batch.TimedOut,
		batch.Elapsed.Round(time.Millisecond))
}
