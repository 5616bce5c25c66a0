// Package searcher executes knowledge-base queries under three strategies
// and compares them side by side.
//
// The dispatcher provides three search strategies:
//   - Semantic: pure vector similarity search, service ranking unchanged
//   - Hybrid: one combined semantic+fulltext request, de-duplicated by
//     best score
//   - Merged: separate semantic and fulltext requests fused with
//     Reciprocal Rank Fusion (default, recommended)
//
// # Basic Usage
//
//	d := searcher.New(client, cfg, logger)
//
//	results, err := d.Search(ctx, "refund policy for damaged goods",
//	    types.StrategyMerged, 10)
//
//	for i, r := range results {
//	    fmt.Printf("%d. [%.3f] %s\n", i+1, r.Score, r.Source)
//	}
//
// # Strategies
//
// Semantic sends a single-feature request and trusts the service ranking.
// Best for conceptual queries where exact words don't matter.
//
// Hybrid asks the service for both features in one round trip. The service
// returns one group per feature; the dispatcher flattens them, keeps the
// highest score per document, and re-sorts by score. Cheapest way to get
// both signals.
//
// Merged issues the two single-feature requests concurrently, so each leg
// returns its own full-depth ranking, then fuses the orderings locally.
// If one leg fails the other's ranking is used alone; only when both fail
// does the search error. Best quality, two round trips.
//
// # Reciprocal Rank Fusion (RRF)
//
// Merged mode combines the two rankings by rank position, not score:
//
//	For each list l in (semantic, fulltext):
//	    For each hit d at 1-based rank r in l:
//	        rrf_score[d.key] += 1 / (k + r)
//
//	Sort by rrf_score descending
//
// Where k = 60 (standard RRF constant). A document found by both legs
// outranks one found by a single leg at similar positions. Result scores
// are the raw service scores from the first leg that produced the hit;
// only the ordering is fused.
//
// # Comparison
//
// Comparer runs the same query under several strategies concurrently and
// assembles per-strategy panels plus an insight summary (result counts,
// average scores, source overlap):
//
//	cmp := searcher.NewComparer(d, searcher.NewCache(cfg.CacheSize), logger)
//
//	out, err := cmp.Compare(ctx, "warranty length", nil, 10)
//
// A strategy failure is reported on its panel; the comparison itself only
// errors on invalid input.
//
// # Caching
//
// Comparisons are cached by query, ordered strategy list, and limit in a
// fixed-size LRU. Cache hits carry Cached=true so surfaces can mark them.
// Entries are deep-copied in both directions.
package searcher
