package uploader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"kbridge/internal/config"
	"kbridge/internal/ledger"
	"kbridge/pkg/types"
)

// ResourceClient is the remote surface the uploader needs.
type ResourceClient interface {
	EnsureResource(ctx context.Context, slug, title, origin string) (string, error)
	UploadFile(ctx context.Context, resourceID, path string) (string, error)
}

// Ledger is the slice of the upload ledger the uploader needs.
type Ledger interface {
	Lookup(ctx context.Context, path string) (*ledger.FileRecord, error)
	RecordFingerprint(ctx context.Context, path, fingerprint string) error
	ConfirmRemoteID(ctx context.Context, path, fingerprint, remoteID string) error
}

// Options control a single batch upload.
type Options struct {
	Recursive   bool     // descend into subdirectories
	Wait        bool     // poll each job to completion and confirm remote IDs
	Concurrency int      // max in-flight files; <=0 uses the configured default
	Extensions  []string // extensions to include; empty means .pdf only
}

// Uploader pushes local documents into the knowledge base, skipping files
// whose content was already ingested.
type Uploader struct {
	client      ResourceClient
	ledger      Ledger
	poller      *Poller
	dataDir     string
	concurrency int
	logger      *slog.Logger
}

// New creates an uploader. When cfg.DataDir is set, every candidate file
// must resolve inside it (symlinks included) or its outcome is a
// validation failure.
func New(client ResourceClient, led Ledger, poller *Poller, cfg config.Config, logger *slog.Logger) *Uploader {
	concurrency := cfg.UploadConcurrency
	if concurrency <= 0 {
		concurrency = config.DefaultConcurrency
	}
	return &Uploader{
		client:      client,
		ledger:      led,
		poller:      poller,
		dataDir:     cfg.DataDir,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Upload processes every matching document under root. Files run through a
// bounded worker pool; one file's failure never aborts the rest. Outcomes
// are returned in enumeration order (sorted by path), one per file, and
// the batch error is reserved for problems with root itself or context
// cancellation.
func (u *Uploader) Upload(ctx context.Context, root string, opts Options) (*types.BatchResult, error) {
	start := time.Now()
	batchID := uuid.NewString()

	files, err := u.enumerate(root, opts)
	if err != nil {
		return nil, err
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = u.concurrency
	}

	u.logger.Info("starting upload batch",
		"batch_id", batchID,
		"root", root,
		"files", len(files),
		"concurrency", concurrency,
		"wait", opts.Wait)

	outcomes := make([]types.FileOutcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)
	for i, path := range files {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			// Each worker writes only its own slot.
			outcomes[i] = u.processFile(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &types.BatchResult{
		BatchID:  batchID,
		Outcomes: outcomes,
		Elapsed:  time.Since(start),
	}
	for _, o := range outcomes {
		switch o.Status {
		case types.StatusUploaded:
			result.Uploaded++
		case types.StatusSkipped:
			result.Skipped++
		case types.StatusTimedOut:
			result.TimedOut++
		default:
			result.Failed++
		}
	}

	u.logger.Info("upload batch finished",
		"batch_id", batchID,
		"uploaded", result.Uploaded,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"timed_out", result.TimedOut,
		"elapsed", result.Elapsed)

	return result, nil
}

// enumerate lists candidate files under root in sorted order. A root that
// is itself a file is taken as-is, bypassing the extension filter. Hidden
// files and directories are skipped.
func (u *Uploader) enumerate(root string, opts Options) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &types.FileAccessError{Path: root, Err: err}
	}

	if !info.IsDir() {
		return []string{filepath.Clean(root)}, nil
	}

	exts := extensionSet(opts.Extensions)
	var files []string

	if opts.Recursive {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if wantFile(d.Name(), exts) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, &types.FileAccessError{Path: root, Err: err}
		}
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, &types.FileAccessError{Path: root, Err: err}
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if wantFile(e.Name(), exts) {
				files = append(files, filepath.Join(root, e.Name()))
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// processFile runs the per-file pipeline: confinement check, fingerprint,
// skip check, submit, and (optionally) wait for ingestion.
func (u *Uploader) processFile(ctx context.Context, path string, opts Options) types.FileOutcome {
	if err := u.confine(path); err != nil {
		u.logger.Warn("file rejected", "path", path, "error", err)
		return failedOutcome(path, err)
	}

	fp, err := Fingerprint(path)
	if err != nil {
		return failedOutcome(path, err)
	}

	rec, err := u.ledger.Lookup(ctx, path)
	switch {
	case err == nil && rec.Fingerprint == fp && rec.RemoteID != "":
		u.logger.Debug("content unchanged, skipping", "path", path, "remote_id", rec.RemoteID)
		return types.FileOutcome{
			Path:     path,
			Status:   types.StatusSkipped,
			RemoteID: rec.RemoteID,
			Detail:   "content unchanged",
		}
	case err != nil && !errors.Is(err, ledger.ErrNotFound):
		return failedOutcome(path, err)
	}

	resourceID, err := u.client.EnsureResource(ctx, slugFromPath(path), titleFromPath(path), path)
	if err != nil {
		return failedOutcome(path, &types.RemoteSubmissionError{Path: path, Op: "ensure resource", Err: err})
	}

	jobID, err := u.client.UploadFile(ctx, resourceID, path)
	if err != nil {
		var accessErr *types.FileAccessError
		if errors.As(err, &accessErr) {
			return failedOutcome(path, err)
		}
		return failedOutcome(path, &types.RemoteSubmissionError{Path: path, Op: "upload file", Err: err})
	}

	// Record the fingerprint as soon as the bytes are on the wire. The
	// remote ID is confirmed separately, after ingestion succeeds.
	if err := u.ledger.RecordFingerprint(ctx, path, fp); err != nil {
		u.logger.Warn("ledger write failed after submission", "path", path, "error", err)
	}

	if !opts.Wait {
		return types.FileOutcome{
			Path:     path,
			Status:   types.StatusUploaded,
			RemoteID: resourceID,
			JobID:    jobID,
			Detail:   "submitted",
		}
	}

	state, err := u.poller.AwaitCompletion(ctx, jobID)
	if err != nil {
		var timedOut *types.TimedOutError
		if errors.As(err, &timedOut) {
			return types.FileOutcome{
				Path:     path,
				Status:   types.StatusTimedOut,
				RemoteID: resourceID,
				JobID:    jobID,
				Detail:   fmt.Sprintf("still processing after %s", timedOut.Waited.Round(time.Second)),
				Err:      err,
			}
		}
		out := failedOutcome(path, err)
		out.RemoteID = resourceID
		out.JobID = jobID
		return out
	}

	if state.Status == types.JobFailed {
		detail := state.Detail
		if detail == "" {
			detail = "ingestion failed"
		}
		return types.FileOutcome{
			Path:     path,
			Status:   types.StatusFailed,
			RemoteID: resourceID,
			JobID:    jobID,
			Detail:   detail,
			Err:      fmt.Errorf("job %s: %s", jobID, detail),
		}
	}

	if err := u.ledger.ConfirmRemoteID(ctx, path, fp, resourceID); err != nil {
		if errors.Is(err, ledger.ErrFingerprintMismatch) {
			u.logger.Warn("file changed while upload was in flight, confirmation dropped",
				"path", path, "remote_id", resourceID)
		} else {
			u.logger.Warn("ledger confirmation failed", "path", path, "error", err)
		}
	}

	return types.FileOutcome{
		Path:     path,
		Status:   types.StatusUploaded,
		RemoteID: resourceID,
		JobID:    jobID,
		Detail:   "ingestion complete",
	}
}

// confine rejects paths that resolve outside the configured data
// directory. Symlinks are resolved first so a link inside the directory
// cannot smuggle in content from outside it.
func (u *Uploader) confine(path string) error {
	if u.dataDir == "" {
		return nil
	}

	dataDir, err := resolveAbs(u.dataDir)
	if err != nil {
		return &types.ValidationError{Field: "data_dir", Message: err.Error()}
	}
	resolved, err := resolveAbs(path)
	if err != nil {
		return &types.FileAccessError{Path: path, Err: err}
	}

	rel, err := filepath.Rel(dataDir, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &types.ValidationError{
			Field:   "path",
			Message: fmt.Sprintf("%s is outside the data directory", path),
		}
	}
	return nil
}

func resolveAbs(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func failedOutcome(path string, err error) types.FileOutcome {
	return types.FileOutcome{
		Path:   path,
		Status: types.StatusFailed,
		Detail: err.Error(),
		Err:    err,
	}
}

// extensionSet normalizes the extension filter to lowercase dot-prefixed
// form. The default admits PDFs only.
func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	if len(set) == 0 {
		set[".pdf"] = struct{}{}
	}
	return set
}

func wantFile(name string, exts map[string]struct{}) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := exts[strings.ToLower(filepath.Ext(name))]
	return ok
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9_-]+`)

// slugFromPath derives the remote resource slug from a local path. The
// mapping is stable: the same path always yields the same slug, so
// re-uploading changed content replaces the resource instead of
// accumulating copies.
func slugFromPath(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	p = strings.TrimPrefix(p, "/")
	slug := slugUnsafe.ReplaceAllString(strings.ToLower(p), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "file"
	}
	return slug
}

// titleFromPath uses the base name without its extension as the resource
// title.
func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
