package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/astquery-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery     = -32001 // Query text is empty
	ErrorCodeTooManyResults = -32002 // maxResults exceeds the server limit
	ErrorCodeUnknownType    = -32003 // Query type not recognized
)

// handleSemanticQuery handles the semantic_query tool invocation
func (s *Server) handleSemanticQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, ok := args["text"].(string)
	if !ok || text == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "text parameter is required and cannot be empty", map[string]interface{}{
			"param":  "text",
			"reason": "missing or empty",
		})
	}

	q := &types.Query{
		Type:       types.QueryTypeSemantic,
		Text:       text,
		MaxResults: getIntDefault(args, "maxResults", 0),
		MinScore:   getFloatDefault(args, "minScore", 0),
		Options: types.SemanticOptions{
			Languages: getStringSlice(args, "languages"),
		},
	}

	currentFile := getStringDefault(args, "currentFile", "")
	selectedText := getStringDefault(args, "selectedText", "")
	if currentFile != "" || selectedText != "" {
		// Editor context reclassifies the lookup as contextual
		q.Type = types.QueryTypeContextual
		q.Options = types.ContextualOptions{
			Languages: getStringSlice(args, "languages"),
		}
		q.Context = &types.QueryContext{
			CurrentFile:  currentFile,
			SelectedText: selectedText,
		}
	}

	return s.runQuery(ctx, q, args)
}

// handleSignatureQuery handles the signature_query tool invocation
func (s *Server) handleSignatureQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	signature, ok := args["signature"].(string)
	if !ok || signature == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "signature parameter is required and cannot be empty", map[string]interface{}{
			"param":  "signature",
			"reason": "missing or empty",
		})
	}

	q := &types.Query{
		Type:       types.QueryTypeSignature,
		Text:       signature,
		MaxResults: getIntDefault(args, "maxResults", 0),
		Options: types.SignatureOptions{
			ExactMatch:    getBoolDefault(args, "exactMatch", true),
			CaseSensitive: getBoolDefault(args, "caseSensitive", false),
		},
	}

	return s.runQuery(ctx, q, args)
}

// handleFileQuery handles the file_query tool invocation
func (s *Server) handleFileQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	filePath, ok := args["filePath"].(string)
	if !ok || filePath == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "filePath parameter is required and cannot be empty", map[string]interface{}{
			"param":  "filePath",
			"reason": "missing or empty",
		})
	}

	q := &types.Query{
		Type:       types.QueryTypeFile,
		Text:       filePath,
		MaxResults: getIntDefault(args, "maxResults", 0),
		MinScore:   getFloatDefault(args, "minScore", 0),
		Options: types.FileOptions{
			Extensions:    getStringSlice(args, "extensions"),
			Directories:   getStringSlice(args, "directories"),
			IncludeHidden: getBoolDefault(args, "includeHidden", false),
		},
	}

	return s.runQuery(ctx, q, args)
}

// handleQueryStats handles the get_query_stats tool invocation
func (s *Server) handleQueryStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.orchestrator.Stats()
	cacheStats := s.orchestrator.CacheStats()

	byType := map[string]int64{}
	for t, n := range stats.QueriesByType {
		byType[string(t)] = n
	}

	response := map[string]interface{}{
		"queries": map[string]interface{}{
			"total":           stats.TotalQueries,
			"by_type":         byType,
			"avg_latency_ms":  stats.AverageLatencyMs,
			"p50_latency_ms":  stats.P50LatencyMs,
			"p95_latency_ms":  stats.P95LatencyMs,
			"p99_latency_ms":  stats.P99LatencyMs,
			"error_rate":      stats.ErrorRate,
			"peak_concurrent": stats.PeakConcurrent,
			"cache_hit_ratio": stats.CacheHitRatio,
		},
		"cache": map[string]interface{}{
			"hits":      cacheStats.Hits,
			"misses":    cacheStats.Misses,
			"evictions": cacheStats.Evictions,
			"size":      cacheStats.Size,
			"capacity":  cacheStats.Capacity,
			"hit_ratio": cacheStats.HitRatio(),
		},
		"alerts": s.orchestrator.Alerts(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// runQuery executes the query and encodes one page of the assembled
// response
func (s *Server) runQuery(ctx context.Context, q *types.Query, args map[string]interface{}) (*mcp.CallToolResult, error) {
	page := getIntDefault(args, "page", 1)
	pageSize := getIntDefault(args, "pageSize", 0)
	requestID := getStringDefault(args, "requestId", "")

	resp, err := s.orchestrator.ExecuteProtocol(ctx, q, requestID, page, pageSize)
	if err != nil {
		return nil, queryError(err)
	}

	encoded, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(string(encoded)), nil
}

// queryError maps pipeline errors onto protocol error codes
func queryError(err error) error {
	switch {
	case errors.Is(err, types.ErrEmptyQueryText):
		return newMCPError(ErrorCodeEmptyQuery, "query text cannot be empty", nil)
	case errors.Is(err, types.ErrMaxResultsExceeded):
		return newMCPError(ErrorCodeTooManyResults, "maxResults exceeds the server limit", map[string]interface{}{
			"limit": types.MaxResultsLimit,
		})
	case errors.Is(err, types.ErrUnknownQueryType):
		return newMCPError(ErrorCodeUnknownType, "unknown query type", nil)
	case errors.Is(err, types.ErrInvalidMinScore), errors.Is(err, types.ErrOptionsTypeMismatch):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	default:
		return newMCPError(ErrorCodeInternalError, "query processing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
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

// getFloatDefault extracts a float parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
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

// getStringSlice extracts a string array parameter
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
	if len(out) == 0 {
		return nil
	}
	return out
}
