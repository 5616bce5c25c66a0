package types

import "strings"

// SearchStrategy selects how a query is executed against the remote service.
type SearchStrategy string

const (
	// StrategySemantic runs a pure vector similarity search.
	StrategySemantic SearchStrategy = "semantic"
	// StrategyHybrid runs one combined semantic+fulltext request and
	// de-duplicates the returned groups by best score.
	StrategyHybrid SearchStrategy = "hybrid"
	// StrategyMerged runs semantic and fulltext separately and fuses the
	// two rankings with reciprocal rank fusion.
	StrategyMerged SearchStrategy = "merged"
)

// Strategies returns all strategies in canonical display order.
func Strategies() []SearchStrategy {
	return []SearchStrategy{StrategySemantic, StrategyHybrid, StrategyMerged}
}

// ParseStrategy normalizes a user-supplied strategy name. An empty string
// selects StrategyMerged. Unknown names yield a ValidationError.
func ParseStrategy(s string) (SearchStrategy, error) {
	switch SearchStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return StrategyMerged, nil
	case StrategySemantic:
		return StrategySemantic, nil
	case StrategyHybrid:
		return StrategyHybrid, nil
	case StrategyMerged:
		return StrategyMerged, nil
	default:
		return "", &ValidationError{
			Field:   "search_type",
			Message: "must be one of: semantic, hybrid, merged",
		}
	}
}

// Valid reports whether s is one of the known strategies.
func (s SearchStrategy) Valid() bool {
	switch s {
	case StrategySemantic, StrategyHybrid, StrategyMerged:
		return true
	}
	return false
}

// SearchResult is one ranked hit as exposed to every consumer (REST, CLI,
// dashboard, MCP). JSON field names are part of the REST contract.
type SearchResult struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}
