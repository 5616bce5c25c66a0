package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"kbridge/internal/kb"
)

// fakeKB is an in-process stand-in for the hosted knowledge-base service.
// It speaks the same HTTP surface the client does: resource upsert by slug,
// document submission, job status, search, and health. Search results are
// canned per feature; the service side of indexing is out of scope here.
type fakeKB struct {
	srv    *httptest.Server
	apiKey string

	mu          sync.Mutex
	resources   map[string]string   // slug -> resource id
	bodies      map[string][]byte   // filename -> last submitted content
	submissions map[string]int      // filename -> submission count
	jobs        map[string]*fakeJob // job id -> progression state
	groups      map[string][]kb.Hit // feature -> canned ranked hits
	searches    int
	jobPolls    int

	pollsToFinish int    // polls a job needs before turning terminal
	failDetail    string // when set, jobs finish failed with this detail
	failFeature   string // when set, searches naming this feature get a 500
}

type fakeJob struct {
	remaining int
	failed    bool
	detail    string
}

// newFakeKB starts the fake service. Every request must carry the given
// bearer key unless it is empty. Jobs succeed on their first poll until a
// test reconfigures the progression.
func newFakeKB(apiKey string) *fakeKB {
	f := &fakeKB{
		apiKey:        apiKey,
		resources:     make(map[string]string),
		bodies:        make(map[string][]byte),
		submissions:   make(map[string]int),
		jobs:          make(map[string]*fakeJob),
		groups:        make(map[string][]kb.Hit),
		pollsToFinish: 1,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/resources", f.auth(f.handleEnsureResource))
	mux.HandleFunc("POST /api/v1/resources/{id}/files", f.auth(f.handleUpload))
	mux.HandleFunc("GET /api/v1/jobs/{id}", f.auth(f.handleJob))
	mux.HandleFunc("POST /api/v1/search", f.auth(f.handleSearch))
	mux.HandleFunc("GET /api/v1/health", f.auth(f.handleHealth))
	f.srv = httptest.NewServer(mux)
	return f
}

func (f *fakeKB) URL() string { return f.srv.URL }

func (f *fakeKB) Close() { f.srv.Close() }

func (f *fakeKB) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+f.apiKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid api key"})
			return
		}
		next(w, r)
	}
}

func (f *fakeKB) handleEnsureResource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slug   string `json:"slug"`
		Title  string `json:"title"`
		Origin string `json:"origin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Slug == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "slug is required"})
		return
	}

	f.mu.Lock()
	id, ok := f.resources[req.Slug]
	if !ok {
		id = fmt.Sprintf("res-%04d", len(f.resources)+1)
		f.resources[req.Slug] = id
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"resource_id": id})
}

func (f *fakeKB) handleUpload(w http.ResponseWriter, r *http.Request) {
	resourceID := r.PathValue("id")
	name := r.Header.Get("X-Filename")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "unreadable body"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.hasResourceID(resourceID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "unknown resource"})
		return
	}

	f.bodies[name] = body
	f.submissions[name]++

	jobID := fmt.Sprintf("job-%04d", len(f.jobs)+1)
	f.jobs[jobID] = &fakeJob{
		remaining: f.pollsToFinish,
		failed:    f.failDetail != "",
		detail:    f.failDetail,
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (f *fakeKB) handleJob(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "unknown job"})
		return
	}

	f.jobPolls++
	job.remaining--

	status := "processing"
	detail := ""
	if job.remaining <= 0 {
		if job.failed {
			status = "failed"
			detail = job.detail
		} else {
			status = "succeeded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"job_id": r.PathValue("id"),
		"status": status,
		"detail": detail,
	})
}

func (f *fakeKB) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query    string   `json:"query"`
		Features []string `json:"features"`
		Limit    int      `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "query is required"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, feature := range req.Features {
		if feature == f.failFeature {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "index shard unavailable"})
			return
		}
	}
	f.searches++

	type group struct {
		Results []kb.Hit `json:"results"`
	}
	groups := make(map[string]group, len(req.Features))
	for _, feature := range req.Features {
		hits := f.groups[feature]
		if req.Limit > 0 && len(hits) > req.Limit {
			hits = hits[:req.Limit]
		}
		groups[feature] = group{Results: hits}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"groups": groups})
}

func (f *fakeKB) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// hasResourceID is called with f.mu held.
func (f *fakeKB) hasResourceID(id string) bool {
	for _, got := range f.resources {
		if got == id {
			return true
		}
	}
	return false
}

func (f *fakeKB) setGroups(feature string, hits []kb.Hit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[feature] = hits
}

func (f *fakeKB) setPollsToFinish(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollsToFinish = n
}

func (f *fakeKB) setFailDetail(detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failDetail = detail
}

func (f *fakeKB) setFailFeature(feature string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFeature = feature
}

func (f *fakeKB) resourceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.resources)
}

func (f *fakeKB) submissionCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissions[name]
}

func (f *fakeKB) totalSubmissions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.submissions {
		total += n
	}
	return total
}

func (f *fakeKB) lastBody(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.bodies[name])
}

func (f *fakeKB) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches
}

func (f *fakeKB) jobPollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobPolls
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
