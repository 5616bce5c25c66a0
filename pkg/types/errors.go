package types

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors for input validation
var (
	ErrEmptyQuery      = errors.New("query cannot be empty")
	ErrInvalidStrategy = errors.New("invalid search strategy")
)

// FileAccessError reports a local file that could not be read or hashed.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("access %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// RemoteSubmissionError reports a submission the remote service rejected
// or that failed in transit. Op names the submission step that failed.
type RemoteSubmissionError struct {
	Path string
	Op   string
	Err  error
}

func (e *RemoteSubmissionError) Error() string {
	return fmt.Sprintf("submit %s (%s): %v", e.Path, e.Op, e.Err)
}

func (e *RemoteSubmissionError) Unwrap() error { return e.Err }

// PollTransientError reports a status poll that kept failing at the
// transport level. The job itself may still be running remotely.
type PollTransientError struct {
	JobID    string
	Attempts int
	Err      error
}

func (e *PollTransientError) Error() string {
	return fmt.Sprintf("poll job %s: %d consecutive failures: %v", e.JobID, e.Attempts, e.Err)
}

func (e *PollTransientError) Unwrap() error { return e.Err }

// TimedOutError reports a job that never reached a terminal status within
// the configured wait budget. Distinct from a job the service marked failed.
type TimedOutError struct {
	JobID  string
	Waited time.Duration
}

func (e *TimedOutError) Error() string {
	return fmt.Sprintf("job %s not finished after %s", e.JobID, e.Waited)
}

// ValidationError rejects caller input before any remote call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// SearchExecutionError reports a remote search failure and identifies the
// strategy that was executing when it happened.
type SearchExecutionError struct {
	Strategy SearchStrategy
	Err      error
}

func (e *SearchExecutionError) Error() string {
	return fmt.Sprintf("search (%s): %v", e.Strategy, e.Err)
}

func (e *SearchExecutionError) Unwrap() error { return e.Err }
