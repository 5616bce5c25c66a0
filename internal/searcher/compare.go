package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"kbridge/pkg/types"
)

// Comparer runs one query under several strategies side by side and caches
// the assembled comparison.
type Comparer struct {
	dispatcher *Dispatcher
	cache      *Cache
	logger     *slog.Logger
}

// NewComparer creates a Comparer on top of an existing dispatcher.
func NewComparer(dispatcher *Dispatcher, cache *Cache, logger *slog.Logger) *Comparer {
	return &Comparer{
		dispatcher: dispatcher,
		cache:      cache,
		logger:     logger,
	}
}

// Compare executes query under each strategy concurrently. A failing
// strategy becomes a message on its panel instead of failing the whole
// comparison. Repeating the same query with the same strategy list is
// served from cache with Cached set.
func (c *Comparer) Compare(ctx context.Context, query string, strategies []types.SearchStrategy, limit int) (*Comparison, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &types.ValidationError{Field: "query", Message: "must not be empty"}
	}
	if len(strategies) == 0 {
		strategies = types.Strategies()
	}
	for _, s := range strategies {
		if !s.Valid() {
			return nil, &types.ValidationError{
				Field:   "strategies",
				Message: fmt.Sprintf("unknown strategy %q, must be one of: semantic, hybrid, merged", s),
			}
		}
	}

	key := cacheKey(query, strategies, limit)
	if cached, ok := c.cache.Get(key); ok {
		cached.Cached = true
		return cached, nil
	}

	start := time.Now()
	panels := make([]Panel, len(strategies))

	var wg sync.WaitGroup
	for i, s := range strategies {
		wg.Add(1)
		go func(i int, s types.SearchStrategy) {
			defer wg.Done()
			c.runPanel(ctx, query, s, limit, &panels[i])
		}(i, s)
	}
	wg.Wait()

	cmp := &Comparison{
		Query:      query,
		Strategies: strategies,
		Panels:     panels,
		Insights:   buildInsights(panels),
		Elapsed:    time.Since(start),
	}
	c.cache.Put(key, cmp)
	return cmp, nil
}

// runPanel fills one comparison panel. Errors are reduced to a short
// user-facing message; the detail goes to the log.
func (c *Comparer) runPanel(ctx context.Context, query string, strategy types.SearchStrategy, limit int, panel *Panel) {
	panel.Strategy = strategy
	results, err := c.dispatcher.Search(ctx, query, strategy, limit)
	if err != nil {
		c.logger.Warn("comparison strategy failed",
			"strategy", strategy, "query", query, "error", err)
		panel.Err = fmt.Sprintf("%s search failed", strategy)
		return
	}
	panel.Results = results
}

// buildInsights derives the summary block from finished panels. Failed
// panels count as zero results and never win a superlative.
func buildInsights(panels []Panel) Insights {
	in := Insights{
		Counts:    make(map[types.SearchStrategy]int, len(panels)),
		AvgScores: make(map[types.SearchStrategy]float64, len(panels)),
	}

	// Track which strategies returned each source
	bySource := make(map[string]map[types.SearchStrategy]bool)
	var bestCount int
	var bestAvg float64

	for _, panel := range panels {
		n := len(panel.Results)
		in.Counts[panel.Strategy] = n
		if n == 0 {
			continue
		}

		var sum float64
		for _, r := range panel.Results {
			sum += r.Score
			if bySource[r.Source] == nil {
				bySource[r.Source] = make(map[types.SearchStrategy]bool)
			}
			bySource[r.Source][panel.Strategy] = true
		}

		avg := sum / float64(n)
		in.AvgScores[panel.Strategy] = avg
		if n > bestCount {
			bestCount = n
			in.MostResults = panel.Strategy
		}
		if avg > bestAvg {
			bestAvg = avg
			in.HighestAvgScore = panel.Strategy
		}
	}

	for source, strategies := range bySource {
		if len(strategies) >= 2 {
			in.Overlap = append(in.Overlap, source)
		}
	}
	sort.Strings(in.Overlap)

	return in
}
