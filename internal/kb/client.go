package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kbridge/pkg/types"
)

// Search features understood by the remote service. A request may carry one
// or both; the response contains one ranked group per requested feature.
const (
	FeatureSemantic = "semantic"
	FeatureFulltext = "fulltext"
)

const (
	defaultTimeout = 30 * time.Second
	uploadTimeout  = 5 * time.Minute

	// Upstream error bodies are logged truncated and never forwarded.
	maxErrorBody = 512
)

// Client talks to the hosted knowledge-base service over HTTP+JSON. The
// service owns parsing, embedding, and index maintenance; this client only
// submits documents, polls job status, and runs searches.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	uploadClient *http.Client
	logger       *slog.Logger
}

// New creates a client for the service at baseURL. The API key is sent as a
// bearer token when non-empty and is never logged.
func New(baseURL, apiKey string, logger *slog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("knowledge-base URL is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		uploadClient: &http.Client{
			Timeout: uploadTimeout,
		},
		logger: logger,
	}, nil
}

// EnsureResource creates the resource identified by slug, or returns the
// existing one. The service upserts by slug, so re-uploading a changed file
// updates the same resource instead of accumulating copies.
func (c *Client) EnsureResource(ctx context.Context, slug, title, origin string) (string, error) {
	reqBody := map[string]interface{}{
		"slug":   slug,
		"title":  title,
		"origin": origin,
	}

	var apiResp struct {
		ResourceID string `json:"resource_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/resources", reqBody, &apiResp); err != nil {
		return "", err
	}
	if apiResp.ResourceID == "" {
		return "", fmt.Errorf("service returned no resource id for slug %s", slug)
	}

	return apiResp.ResourceID, nil
}

// UploadFile streams the file at path into the resource and returns the
// processing job handle the service assigned.
func (c *Client) UploadFile(ctx context.Context, resourceID, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &types.FileAccessError{Path: path, Err: err}
	}
	defer func() {
		_ = f.Close()
	}()

	fi, err := f.Stat()
	if err != nil {
		return "", &types.FileAccessError{Path: path, Err: err}
	}

	url := fmt.Sprintf("%s/api/v1/resources/%s/files", c.baseURL, resourceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, f)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.ContentLength = fi.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Filename", filepath.Base(path))
	c.authorize(req)

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("api error %d: %s", resp.StatusCode, errorBody(resp.Body))
	}

	var apiResp struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.JobID == "" {
		return "", fmt.Errorf("service returned no job id for resource %s", resourceID)
	}

	return apiResp.JobID, nil
}

// JobState is one observation of a processing job.
type JobState struct {
	Status types.JobStatus
	Detail string
}

// JobStatus fetches the current state of a processing job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (JobState, error) {
	var apiResp struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
		Detail string `json:"detail"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/jobs/"+jobID, nil, &apiResp); err != nil {
		return JobState{}, err
	}

	switch types.JobStatus(apiResp.Status) {
	case types.JobPending, types.JobProcessing, types.JobSucceeded, types.JobFailed:
		return JobState{Status: types.JobStatus(apiResp.Status), Detail: apiResp.Detail}, nil
	default:
		return JobState{}, fmt.Errorf("unknown job status %q", apiResp.Status)
	}
}

// SearchRequest is one query against the service.
type SearchRequest struct {
	Query    string
	Features []string
	Limit    int
}

// Hit is one ranked fragment from one feature group. ResourceID, Source,
// and Position together identify the fragment across feature groups.
type Hit struct {
	ResourceID string  `json:"resource_id"`
	Source     string  `json:"source"`
	Position   int     `json:"position"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Key returns the fragment identity used for de-duplication and fusion.
func (h Hit) Key() string {
	return fmt.Sprintf("%s:%s:%d", h.ResourceID, h.Source, h.Position)
}

// SearchResponse groups hits by the feature that produced them. Each group
// is ranked best-first by the service.
type SearchResponse struct {
	Groups map[string][]Hit
}

// Search runs one query with the requested features.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	reqBody := map[string]interface{}{
		"query":    req.Query,
		"features": req.Features,
	}
	if req.Limit > 0 {
		reqBody["limit"] = req.Limit
	}

	var apiResp struct {
		Groups map[string]struct {
			Results []Hit `json:"results"`
		} `json:"groups"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/search", reqBody, &apiResp); err != nil {
		return nil, err
	}

	out := &SearchResponse{Groups: make(map[string][]Hit, len(apiResp.Groups))}
	for feature, group := range apiResp.Groups {
		out.Groups[feature] = group.Results
	}

	return out, nil
}

// Health checks that the service answers at all.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/v1/health", nil, nil)
}

// BaseURL returns the configured endpoint, for display surfaces.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	c.uploadClient.CloseIdleConnections()
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("api error %d: %s", resp.StatusCode, errorBody(resp.Body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func errorBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}
