package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kbridge/internal/config"
	"kbridge/internal/kb"
	"kbridge/internal/ledger"
	"kbridge/internal/uploader"
	"kbridge/pkg/types"
)

const testAPIKey = "integration-key"

// IngestTestSuite drives the real client, uploader, poller, and ledger
// against the fake service: submit, poll to completion, confirm, and skip
// on re-runs.
type IngestTestSuite struct {
	suite.Suite
	ctx    context.Context
	fake   *fakeKB
	client *kb.Client
	led    *ledger.Ledger
	up     *uploader.Uploader
	dir    string
}

// SetupTest builds a fresh stack per test: new fake service, empty
// in-memory ledger, millisecond polling so multi-poll jobs finish fast.
func (s *IngestTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.fake = newFakeKB(testAPIKey)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := kb.New(s.fake.URL(), testAPIKey, logger)
	s.Require().NoError(err)
	s.client = client

	led, err := ledger.Open(":memory:")
	s.Require().NoError(err)
	s.led = led

	cfg := config.Config{
		PollInterval:    time.Millisecond,
		PollMaxInterval: 5 * time.Millisecond,
		PollMaxWait:     5 * time.Second,
	}
	poller := uploader.NewPoller(client, cfg, logger)
	s.up = uploader.New(client, led, poller, cfg, logger)

	s.dir = s.T().TempDir()
}

func (s *IngestTestSuite) TearDownTest() {
	_ = s.led.Close()
	_ = s.client.Close()
	s.fake.Close()
}

// write creates a document under the batch root and returns its path.
func (s *IngestTestSuite) write(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (s *IngestTestSuite) TestUploadWaitsAndConfirms() {
	guide := s.write("guide.pdf", "installation guide")
	manual := s.write("manual.pdf", "owner manual")

	batch, err := s.up.Upload(s.ctx, s.dir, uploader.Options{Wait: true})
	s.Require().NoError(err)

	s.Equal(2, batch.Uploaded)
	s.Zero(batch.Skipped)
	s.Zero(batch.Failed)
	s.Zero(batch.TimedOut)
	s.NotEmpty(batch.BatchID)

	s.Require().Len(batch.Outcomes, 2)
	s.Equal(guide, batch.Outcomes[0].Path)
	s.Equal(manual, batch.Outcomes[1].Path)
	for _, out := range batch.Outcomes {
		s.Equal(types.StatusUploaded, out.Status)
		s.Equal("ingestion complete", out.Detail)
		s.NotEmpty(out.RemoteID)
		s.NotEmpty(out.JobID)
	}

	s.Equal(2, s.fake.resourceCount())
	s.Equal(2, s.fake.totalSubmissions())
	s.Equal("owner manual", s.fake.lastBody("manual.pdf"))

	// Confirmed remote IDs land in the ledger.
	for _, out := range batch.Outcomes {
		rec, err := s.led.Lookup(s.ctx, out.Path)
		s.Require().NoError(err)
		s.Equal(out.RemoteID, rec.RemoteID)
		s.NotEmpty(rec.Fingerprint)
	}
}

func (s *IngestTestSuite) TestRerunSkipsUnchangedFiles() {
	s.write("guide.pdf", "installation guide")
	s.write("manual.pdf", "owner manual")

	_, err := s.up.Upload(s.ctx, s.dir, uploader.Options{Wait: true})
	s.Require().NoError(err)
	s.Equal(2, s.fake.totalSubmissions())

	batch, err := s.up.Upload(s.ctx, s.dir, uploader.Options{Wait: true})
	s.Require().NoError(err)

	s.Zero(batch.Uploaded)
	s.Equal(2, batch.Skipped)
	for _, out := range batch.Outcomes {
		s.Equal(types.StatusSkipped, out.Status)
		s.Equal("content unchanged", out.Detail)
		s.NotEmpty(out.RemoteID)
	}

	// Nothing crossed the wire the second time.
	s.Equal(2, s.fake.totalSubmissions())
}

func (s *IngestTestSuite) TestChangedFileReusesResource() {
	path := s.write("manual.pdf", "first revision")

	first, err := s.up.Upload(s.ctx, s.dir, uploader.Options{Wait: true})
	s.Require().NoError(err)
	s.Require().Equal(1, first.Uploaded)

	s.write("manual.pdf", "second revision")

	second, err := s.up.Upload(s.ctx, s.dir, uploader.Options{Wait: true})
	s.Require().NoError(err)
	s.Equal(1, second.Uploaded)
	s.Zero(second.Skipped)

	// Same path means the same slug, so the service updates one resource
	// instead of accumulating copies.
	s.Equal(first.Outcomes[0].RemoteID, second.Outcomes[0].RemoteID)
	s.Equal(1, s.fake.resourceCount())
	s.Equal(2, s.fake.submissionCount("manual.pdf"))
	s.Equal("second revision", s.fake.lastBody("manual.pdf"))

	rec, err := s.led.Lookup(s.ctx, path)
	s.Require().NoError(err)
	s.Equal(second.Outcomes[0].RemoteID, rec.RemoteID)
}

func (s *IngestTestSuite) TestSlowJobIsPolledToCompletion() {
	s.write("manual.pdf", "owner manual")
	s.fake.setPollsToFinish(4)

	batch, err := s.up.Upload(s.ctx, s.dir, uploader.Options{Wait: true})
	s.Require().NoError(err)

	s.Equal(1, batch.Uploaded)
	s.Equal("ingestion complete", batch.Outcomes[0].Detail)
	s.GreaterOrEqual(s.fake.jobPollCount(), 4)
}

func (s *IngestTestSuite) TestFailedIngestionIsNotConfirmed() {
	path := s.write("scan.pdf", "binary scan")
	s.fake.setFailDetail("unsupported file format")

	batch, err := s.up.Upload(s.ctx, s.dir, uploader.Options{Wait: true})
	s.Require().NoError(err)

	s.Equal(1, batch.Failed)
	out := batch.Outcomes[0]
	s.Equal(types.StatusFailed, out.Status)
	s.Equal("unsupported file format", out.Detail)
	s.Error(out.Err)

	// Fingerprint is recorded at submission, but the remote ID stays
	// unconfirmed, so the next run retries instead of skipping.
	rec, err := s.led.Lookup(s.ctx, path)
	s.Require().NoError(err)
	s.NotEmpty(rec.Fingerprint)
	s.Empty(rec.RemoteID)

	s.fake.setFailDetail("")

	retry, err := s.up.Upload(s.ctx, s.dir, uploader.Options{Wait: true})
	s.Require().NoError(err)
	s.Equal(1, retry.Uploaded)
	s.Zero(retry.Skipped)
	s.Equal(2, s.fake.submissionCount("scan.pdf"))
}

func (s *IngestTestSuite) TestNoWaitReportsSubmitted() {
	path := s.write("manual.pdf", "owner manual")

	batch, err := s.up.Upload(s.ctx, s.dir, uploader.Options{Wait: false})
	s.Require().NoError(err)

	s.Equal(1, batch.Uploaded)
	out := batch.Outcomes[0]
	s.Equal(types.StatusUploaded, out.Status)
	s.Equal("submitted", out.Detail)
	s.NotEmpty(out.JobID)

	// No polling happened and the upload is left pending confirmation.
	s.Zero(s.fake.jobPollCount())
	rec, err := s.led.Lookup(s.ctx, path)
	s.Require().NoError(err)
	s.Empty(rec.RemoteID)

	stats, err := s.led.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Records)
	s.Zero(stats.Confirmed)
	s.Equal(1, stats.Pending)
}

func (s *IngestTestSuite) TestSingleFileRootSkipsExtensionFilter() {
	path := s.write("notes.txt", "plain text notes")

	batch, err := s.up.Upload(s.ctx, path, uploader.Options{Wait: true})
	s.Require().NoError(err)

	s.Require().Len(batch.Outcomes, 1)
	s.Equal(1, batch.Uploaded)
	s.Equal(1, s.fake.submissionCount("notes.txt"))
}

func (s *IngestTestSuite) TestConcurrentBatchKeepsEnumerationOrder() {
	names := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf", "f.pdf"}
	for _, name := range names {
		s.write(name, "contents of "+name)
	}

	batch, err := s.up.Upload(s.ctx, s.dir, uploader.Options{Wait: true, Concurrency: 3})
	s.Require().NoError(err)

	s.Equal(6, batch.Uploaded)
	s.Require().Len(batch.Outcomes, 6)
	for i, name := range names {
		s.Equal(filepath.Join(s.dir, name), batch.Outcomes[i].Path)
	}
	s.Equal(6, s.fake.resourceCount())
}

func (s *IngestTestSuite) TestWrongAPIKeyFailsSubmission() {
	s.write("manual.pdf", "owner manual")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := kb.New(s.fake.URL(), "wrong-key", logger)
	s.Require().NoError(err)
	defer func() {
		_ = client.Close()
	}()

	poller := uploader.NewPoller(client, config.Config{PollInterval: time.Millisecond}, logger)
	up := uploader.New(client, s.led, poller, config.Config{}, logger)

	batch, err := up.Upload(s.ctx, s.dir, uploader.Options{Wait: true})
	s.Require().NoError(err)

	s.Equal(1, batch.Failed)
	out := batch.Outcomes[0]
	s.Equal(types.StatusFailed, out.Status)
	s.Contains(out.Detail, "ensure resource")
	s.Zero(s.fake.totalSubmissions())
}

func TestIngestSuite(t *testing.T) {
	suite.Run(t, new(IngestTestSuite))
}
