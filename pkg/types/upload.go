package types

import "time"

// JobStatus is the processing state the remote service reports for an
// ingestion job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobSucceeded  JobStatus = "succeeded"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status will never change again.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// UploadStatus is the per-file outcome of a batch upload.
type UploadStatus string

const (
	// StatusUploaded means the file was submitted and, when the batch
	// waits for completion, processed successfully.
	StatusUploaded UploadStatus = "uploaded"
	// StatusSkipped means the ledger already holds a confirmed remote ID
	// for the file's current fingerprint; no remote traffic happened.
	StatusSkipped UploadStatus = "skipped"
	StatusFailed  UploadStatus = "failed"
	// StatusTimedOut means submission succeeded but the job never reached
	// a terminal status within the wait budget.
	StatusTimedOut UploadStatus = "timed_out"
)

// FileOutcome records what happened to one file of a batch.
type FileOutcome struct {
	Path     string       `json:"path"`
	Status   UploadStatus `json:"status"`
	RemoteID string       `json:"remote_id,omitempty"`
	JobID    string       `json:"job_id,omitempty"`
	Detail   string       `json:"detail,omitempty"`
	Err      error        `json:"-"`
}

// BatchResult aggregates a whole upload run. Outcomes preserve the input
// enumeration order regardless of which uploads finished first.
type BatchResult struct {
	BatchID  string        `json:"batch_id"`
	Outcomes []FileOutcome `json:"outcomes"`
	Uploaded int           `json:"uploaded"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	TimedOut int           `json:"timed_out"`
	Elapsed  time.Duration `json:"elapsed"`
}
