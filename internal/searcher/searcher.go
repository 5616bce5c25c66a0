package searcher

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"kbridge/internal/config"
	"kbridge/internal/kb"
	"kbridge/pkg/types"
)

// rrfK is the standard Reciprocal Rank Fusion constant. Larger values
// flatten the score difference between adjacent ranks.
const rrfK = 60

// Client is the slice of the knowledge-base API the dispatcher needs.
type Client interface {
	Search(ctx context.Context, req kb.SearchRequest) (*kb.SearchResponse, error)
}

// Dispatcher executes a query against the knowledge base under one of the
// supported strategies and normalizes the response into ranked results.
type Dispatcher struct {
	client Client
	limit  int
	logger *slog.Logger
}

// New creates a Dispatcher. cfg supplies the default result limit used
// when a caller passes limit <= 0.
func New(client Client, cfg config.Config, logger *slog.Logger) *Dispatcher {
	limit := cfg.SearchLimit
	if limit <= 0 {
		limit = config.DefaultSearchLimit
	}
	return &Dispatcher{
		client: client,
		limit:  limit,
		logger: logger,
	}
}

// Search runs query under the given strategy. The query is rejected before
// any remote call when it is blank or the strategy is unknown.
func (d *Dispatcher) Search(ctx context.Context, query string, strategy types.SearchStrategy, limit int) ([]types.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &types.ValidationError{Field: "query", Message: "must not be empty"}
	}
	if limit <= 0 {
		limit = d.limit
	}

	switch strategy {
	case types.StrategySemantic:
		return d.semanticSearch(ctx, query, limit)
	case types.StrategyHybrid:
		return d.hybridSearch(ctx, query, limit)
	case types.StrategyMerged:
		return d.mergedSearch(ctx, query, limit)
	default:
		return nil, &types.ValidationError{
			Field:   "search_type",
			Message: "must be one of: semantic, hybrid, merged",
		}
	}
}

// semanticSearch runs a pure vector similarity search and passes the
// service ranking through unchanged.
func (d *Dispatcher) semanticSearch(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	resp, err := d.client.Search(ctx, kb.SearchRequest{
		Query:    query,
		Features: []string{kb.FeatureSemantic},
		Limit:    limit,
	})
	if err != nil {
		return nil, &types.SearchExecutionError{Strategy: types.StrategySemantic, Err: err}
	}
	return toResults(resp.Groups[kb.FeatureSemantic], limit), nil
}

// hybridSearch issues one request for both features and de-duplicates the
// returned groups, keeping the best score per document.
func (d *Dispatcher) hybridSearch(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	resp, err := d.client.Search(ctx, kb.SearchRequest{
		Query:    query,
		Features: []string{kb.FeatureSemantic, kb.FeatureFulltext},
		Limit:    limit,
	})
	if err != nil {
		return nil, &types.SearchExecutionError{Strategy: types.StrategyHybrid, Err: err}
	}
	hits := dedupeMaxScore(resp.Groups[kb.FeatureSemantic], resp.Groups[kb.FeatureFulltext])
	return toResults(hits, limit), nil
}

// legResult carries one feature's hits out of its goroutine.
type legResult struct {
	hits []kb.Hit
	err  error
}

// runLeg executes a single-feature search in a goroutine.
func (d *Dispatcher) runLeg(ctx context.Context, query, feature string, limit int, out chan<- legResult) {
	var res legResult
	resp, err := d.client.Search(ctx, kb.SearchRequest{
		Query:    query,
		Features: []string{feature},
		Limit:    limit,
	})
	if err != nil {
		res.err = err
	} else {
		res.hits = resp.Groups[feature]
	}
	select {
	case out <- res:
	case <-ctx.Done():
	}
}

// mergedSearch runs the semantic and fulltext legs concurrently and fuses
// the two rankings with Reciprocal Rank Fusion.
func (d *Dispatcher) mergedSearch(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	semChan := make(chan legResult, 1)
	ftsChan := make(chan legResult, 1)

	go d.runLeg(ctx, query, kb.FeatureSemantic, limit, semChan)
	go d.runLeg(ctx, query, kb.FeatureFulltext, limit, ftsChan)

	// Wait for both legs
	var semRes, ftsRes legResult
	var semDone, ftsDone bool
	for !semDone || !ftsDone {
		select {
		case semRes = <-semChan:
			semDone = true
		case ftsRes = <-ftsChan:
			ftsDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Check for errors (allow one leg to fail)
	if semRes.err != nil && ftsRes.err != nil {
		return nil, &types.SearchExecutionError{
			Strategy: types.StrategyMerged,
			Err:      errors.Join(semRes.err, ftsRes.err),
		}
	}
	if semRes.err != nil {
		d.logger.Warn("semantic leg failed, degrading to fulltext only",
			"query", query, "error", semRes.err)
	}
	if ftsRes.err != nil {
		d.logger.Warn("fulltext leg failed, degrading to semantic only",
			"query", query, "error", ftsRes.err)
	}

	fused := fuseRanked(semRes.hits, ftsRes.hits)
	return toResults(fused, limit), nil
}

// fuseRanked combines independently ranked hit lists with Reciprocal Rank
// Fusion. RRF(d) = Σ 1/(k + rank(d)) with 1-based ranks. Display fields
// (text, score, source) come from the first list that produced the hit;
// only the ordering is fused.
func fuseRanked(lists ...[]kb.Hit) []kb.Hit {
	fused := make(map[string]float64)
	first := make(map[string]kb.Hit)

	for _, list := range lists {
		for rank, hit := range list {
			key := hit.Key()
			fused[key] += 1.0 / (rrfK + float64(rank+1))
			if _, ok := first[key]; !ok {
				first[key] = hit
			}
		}
	}

	hits := make([]kb.Hit, 0, len(first))
	for _, hit := range first {
		hits = append(hits, hit)
	}
	sort.Slice(hits, func(i, j int) bool {
		ki, kj := hits[i].Key(), hits[j].Key()
		if fused[ki] != fused[kj] {
			return fused[ki] > fused[kj]
		}
		return ki < kj
	})
	return hits
}

// dedupeMaxScore merges hit groups by document key, keeping the highest
// score for each, and orders the result by score descending.
func dedupeMaxScore(groups ...[]kb.Hit) []kb.Hit {
	best := make(map[string]kb.Hit)
	for _, group := range groups {
		for _, hit := range group {
			key := hit.Key()
			cur, ok := best[key]
			if !ok || hit.Score > cur.Score {
				best[key] = hit
			}
		}
	}

	hits := make([]kb.Hit, 0, len(best))
	for _, hit := range best {
		hits = append(hits, hit)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Key() < hits[j].Key()
	})
	return hits
}

// toResults truncates hits to limit and strips them down to the fields
// every consumer sees.
func toResults(hits []kb.Hit, limit int) []types.SearchResult {
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	results := make([]types.SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = types.SearchResult{
			Text:   hit.Text,
			Score:  hit.Score,
			Source: hit.Source,
		}
	}
	return results
}
