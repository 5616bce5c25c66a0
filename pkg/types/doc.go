// Package types provides shared type definitions for kbridge.
//
// This package defines the domain types used across components: search
// strategies and results, per-file upload outcomes, remote job statuses,
// and the error taxonomy surfaced by the uploader, poller, and dispatcher.
//
// # Search
//
// SearchStrategy names one of the three supported query modes:
//
//	strategy, err := types.ParseStrategy("hybrid")
//	if err != nil {
//	    // *types.ValidationError: unknown strategy name
//	}
//
// SearchResult is the single hit shape every consumer sees; its JSON tags
// are the REST response contract:
//
//	[{"text": "...", "score": 0.87, "source": "papers/rag.pdf"}]
//
// # Upload outcomes
//
// A batch upload produces one FileOutcome per input file, in enumeration
// order, with Status one of uploaded, skipped, failed, or timed_out. A
// timed-out job is not a failed job: submission succeeded but the service
// never reported a terminal status within the wait budget.
//
// # Errors
//
// The error types here are matched with errors.As at the boundaries:
//
//	var verr *types.ValidationError
//	if errors.As(err, &verr) {
//	    // caller input problem: report 4xx, never retry
//	}
//
// FileAccessError, RemoteSubmissionError, PollTransientError, and
// SearchExecutionError wrap their causes and support errors.Unwrap.
package types
