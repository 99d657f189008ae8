package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// queryStatsTool returns the tool definition for get_query_stats.
// The query tools themselves advertise their schemas through the
// assembler's capability block.
func queryStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_query_stats",
		Description: "Report aggregate query performance, cache counters, and recent threshold alerts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
