// Package kb is the HTTP client for the hosted knowledge-base service.
//
// The service is a black box that owns document parsing, embedding, and
// index maintenance. kbridge consumes five operations:
//
//	resource upsert  POST /api/v1/resources        slug-keyed, returns resource_id
//	file upload      POST /api/v1/resources/{id}/files  returns a processing job_id
//	job status       GET  /api/v1/jobs/{id}        pending|processing|succeeded|failed
//	search           POST /api/v1/search           one ranked group per feature
//	health           GET  /api/v1/health
//
// Requests authenticate with a bearer token when a key is configured. Error
// bodies from the service are truncated for logging and never forwarded to
// kbridge's own clients.
//
// The client performs no retries: the completion poller owns retry policy
// for job status, and searches fail fast so the dispatcher can attribute
// the failure to a strategy.
package kb
