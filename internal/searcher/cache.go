package searcher

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"kbridge/internal/config"
	"kbridge/pkg/types"
)

// Panel holds one strategy's outcome inside a comparison. Err carries a
// user-facing failure message; Results and Err are mutually exclusive.
type Panel struct {
	Strategy types.SearchStrategy
	Results  []types.SearchResult
	Err      string
}

// Insights summarizes how the strategies differed on one query.
type Insights struct {
	// Counts maps each strategy to the number of results it returned.
	Counts map[types.SearchStrategy]int
	// MostResults names the strategy with the largest result set, or is
	// empty when every strategy came back empty.
	MostResults types.SearchStrategy
	// HighestAvgScore names the strategy whose results averaged the best
	// score, or is empty when every strategy came back empty.
	HighestAvgScore types.SearchStrategy
	// AvgScores maps each non-empty strategy to its mean result score.
	AvgScores map[types.SearchStrategy]float64
	// Overlap lists sources returned by at least two strategies, sorted.
	Overlap []string
}

// Comparison is a side-by-side run of several strategies on one query.
type Comparison struct {
	Query      string
	Strategies []types.SearchStrategy
	Panels     []Panel
	Insights   Insights
	Elapsed    time.Duration
	Cached     bool
}

// Cache keeps recently assembled comparisons. Entries are deep-copied on
// the way in and out so callers can mutate what they get back without
// corrupting later hits.
type Cache struct {
	entries *lru.Cache[string, *Comparison]
}

// NewCache creates a comparison cache. capacity <= 0 selects the default.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = config.DefaultCacheSize
	}
	entries, err := lru.New[string, *Comparison](capacity)
	if err != nil {
		// This should never happen with a positive size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &Cache{entries: entries}
}

// Get returns a copy of the cached comparison for key, if present.
func (c *Cache) Get(key string) (*Comparison, bool) {
	cmp, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return copyComparison(cmp), true
}

// Put stores a copy of cmp under key, evicting the least recently used
// entry when the cache is full.
func (c *Cache) Put(key string, cmp *Comparison) {
	c.entries.Add(key, copyComparison(cmp))
}

// Len returns the number of cached comparisons.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// cacheKey builds the lookup key for a query, an ordered strategy list, and
// the requested limit. Strategy order is part of the key: the panels it
// produces are positional. Limit is part of the key because panels hold
// already-truncated result sets.
func cacheKey(query string, strategies []types.SearchStrategy, limit int) string {
	parts := make([]string, 0, len(strategies)+2)
	parts = append(parts, query, strconv.Itoa(limit))
	for _, s := range strategies {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, "|")
}

// copyComparison creates a deep copy of a Comparison
func copyComparison(src *Comparison) *Comparison {
	dst := *src

	dst.Strategies = append([]types.SearchStrategy(nil), src.Strategies...)

	dst.Panels = make([]Panel, len(src.Panels))
	for i, panel := range src.Panels {
		dst.Panels[i] = panel
		dst.Panels[i].Results = append([]types.SearchResult(nil), panel.Results...)
	}

	dst.Insights.Counts = make(map[types.SearchStrategy]int, len(src.Insights.Counts))
	for k, v := range src.Insights.Counts {
		dst.Insights.Counts[k] = v
	}
	dst.Insights.AvgScores = make(map[types.SearchStrategy]float64, len(src.Insights.AvgScores))
	for k, v := range src.Insights.AvgScores {
		dst.Insights.AvgScores[k] = v
	}
	dst.Insights.Overlap = append([]string(nil), src.Insights.Overlap...)

	return &dst
}
