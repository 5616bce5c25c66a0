package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"kbridge/internal/ledger"
	"kbridge/internal/uploader"
	"kbridge/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

const (
	defaultToolLimit = 10
	maxToolLimit     = 100
)

// handleSearchKnowledgeBase handles the search_knowledge_base tool invocation
func (s *Server) handleSearchKnowledgeBase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	strategyName := getStringDefault(args, "strategy", "")
	strategy, err := types.ParseStrategy(strategyName)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid strategy", map[string]interface{}{
			"param":   "strategy",
			"value":   strategyName,
			"allowed": []string{"semantic", "hybrid", "merged"},
		})
	}

	limit := getIntDefault(args, "limit", defaultToolLimit)
	if limit < 1 || limit > maxToolLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	results, err := s.dispatcher.Search(ctx, query, strategy, limit)
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			return nil, newMCPError(ErrorCodeInvalidParams, verr.Error(), map[string]interface{}{
				"param": verr.Field,
			})
		}
		// Remote detail stays in the log; the client gets a flat failure.
		s.logger.Error("search tool failed", "strategy", strategy, "error", err)
		return mcp.NewToolResultError("search failed"), nil
	}

	response := map[string]interface{}{
		"query":    query,
		"strategy": string(strategy),
		"count":    len(results),
		"results":  results,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleUploadDocuments handles the upload_documents tool invocation
func (s *Server) handleUploadDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	opts := uploader.Options{
		Recursive:  getBoolDefault(args, "recursive", false),
		Wait:       getBoolDefault(args, "wait", true),
		Extensions: getStringSlice(args, "extensions"),
	}

	batch, err := s.uploader.Upload(ctx, path, opts)
	if err != nil {
		var aerr *types.FileAccessError
		if errors.As(err, &aerr) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
				"param":  "path",
				"reason": aerr.Error(),
			})
		}
		s.logger.Error("upload tool failed", "path", path, "error", err)
		return mcp.NewToolResultError("upload failed"), nil
	}

	response := map[string]interface{}{
		"batch_id":    batch.BatchID,
		"uploaded":    batch.Uploaded,
		"skipped":     batch.Skipped,
		"failed":      batch.Failed,
		"timed_out":   batch.TimedOut,
		"duration_ms": batch.Elapsed.Milliseconds(),
		"outcomes":    batch.Outcomes,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCompareStrategies handles the compare_strategies tool invocation
func (s *Server) handleCompareStrategies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	var strategies []types.SearchStrategy
	for _, name := range getStringSlice(args, "strategies") {
		strategies = append(strategies, types.SearchStrategy(name))
	}

	limit := getIntDefault(args, "limit", defaultToolLimit)
	if limit < 1 || limit > maxToolLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	cmp, err := s.comparer.Compare(ctx, query, strategies, limit)
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			return nil, newMCPError(ErrorCodeInvalidParams, verr.Error(), map[string]interface{}{
				"param": verr.Field,
			})
		}
		s.logger.Error("compare tool failed", "query", query, "error", err)
		return mcp.NewToolResultError("comparison failed"), nil
	}

	panels := make([]map[string]interface{}, len(cmp.Panels))
	for i, p := range cmp.Panels {
		panel := map[string]interface{}{
			"strategy": string(p.Strategy),
			"count":    len(p.Results),
		}
		if p.Err != "" {
			panel["error"] = p.Err
		} else {
			panel["results"] = p.Results
		}
		panels[i] = panel
	}

	response := map[string]interface{}{
		"query":      cmp.Query,
		"cached":     cmp.Cached,
		"elapsed_ms": cmp.Elapsed.Milliseconds(),
		"panels":     panels,
		"insights": map[string]interface{}{
			"counts":            cmp.Insights.Counts,
			"most_results":      string(cmp.Insights.MostResults),
			"highest_avg_score": string(cmp.Insights.HighestAvgScore),
			"avg_scores":        cmp.Insights.AvgScores,
			"overlap":           cmp.Insights.Overlap,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetLedgerStatus handles the get_ledger_status tool invocation
func (s *Server) handleGetLedgerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	limit := getIntDefault(args, "limit", defaultToolLimit)
	if limit < 0 || limit > maxToolLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 0 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	stats, err := s.ledger.Stats(ctx)
	if err != nil {
		s.logger.Error("ledger stats failed", "error", err)
		return nil, newMCPError(ErrorCodeInternalError, "failed to read ledger", nil)
	}

	records, err := s.ledger.Records(ctx, limit)
	if err != nil {
		s.logger.Error("ledger records failed", "error", err)
		return nil, newMCPError(ErrorCodeInternalError, "failed to read ledger", nil)
	}

	recent := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		entry := map[string]interface{}{
			"path":       rec.Path,
			"confirmed":  rec.RemoteID != "",
			"updated_at": rec.UpdatedAt.Format(time.RFC3339),
		}
		if rec.RemoteID != "" {
			entry["remote_id"] = rec.RemoteID
		}
		recent = append(recent, entry)
	}

	response := map[string]interface{}{
		"ledger": map[string]interface{}{
			"path":   stats.Path,
			"driver": ledger.BuildMode,
		},
		"statistics": map[string]interface{}{
			"tracked_files": stats.Records,
			"confirmed":     stats.Confirmed,
			"pending":       stats.Pending,
		},
		"recent_files": recent,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string-array parameter, dropping entries that
// are not strings. A missing key yields nil.
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
