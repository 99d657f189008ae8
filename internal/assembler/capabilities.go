package assembler

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/astquery-mcp/pkg/types"
)

// Capabilities is the static capability block advertised with every
// protocol response. It describes what the server can do; it is not
// used for runtime dispatch.
type Capabilities struct {
	Tools               []mcp.Tool `json:"tools"`
	SupportedQueryTypes []string   `json:"supportedQueryTypes"`
	MaxResultsPerQuery  int        `json:"maxResultsPerQuery"`
}

// ServerCapabilities returns the fixed capability advertisement
func ServerCapabilities() Capabilities {
	return Capabilities{
		Tools: []mcp.Tool{
			SemanticQueryTool(),
			SignatureQueryTool(),
			FileQueryTool(),
		},
		SupportedQueryTypes: []string{
			string(types.QueryTypeSemantic),
			string(types.QueryTypeSignature),
			string(types.QueryTypeFile),
			string(types.QueryTypeContextual),
		},
		MaxResultsPerQuery: types.MaxResultsLimit,
	}
}

// SemanticQueryTool returns the tool descriptor for semantic_query
func SemanticQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "semantic_query",
		Description: "Search indexed annotations by natural-language meaning",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query text",
				},
				"maxResults": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"default":     10,
					"minimum":     1,
					"maximum":     types.MaxResultsLimit,
				},
				"minScore": map[string]interface{}{
					"type":        "number",
					"description": "Minimum relevance score threshold (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"languages": map[string]interface{}{
					"type":        "array",
					"description": "Restrict results to these language tags",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"currentFile": map[string]interface{}{
					"type":        "string",
					"description": "Editor's current file; results near it rank higher",
				},
				"selectedText": map[string]interface{}{
					"type":        "string",
					"description": "Editor's current selection, used to enrich the query",
				},
			},
			Required: []string{"text"},
		},
	}
}

// SignatureQueryTool returns the tool descriptor for signature_query
func SignatureQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "signature_query",
		Description: "Look up annotations by function or type signature",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"signature": map[string]interface{}{
					"type":        "string",
					"description": "Signature text to match",
				},
				"exactMatch": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, only exact normalized matches are returned",
					"default":     true,
				},
				"caseSensitive": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, signature comparison preserves case",
					"default":     false,
				},
				"maxResults": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"default":     10,
					"minimum":     1,
					"maximum":     types.MaxResultsLimit,
				},
			},
			Required: []string{"signature"},
		},
	}
}

// FileQueryTool returns the tool descriptor for file_query
func FileQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "file_query",
		Description: "Find indexed files by name, path, glob, or fuzzy match",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"filePath": map[string]interface{}{
					"type":        "string",
					"description": "File name, path, or glob pattern to match",
				},
				"recursive": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, match files in nested directories",
					"default":     true,
				},
				"extensions": map[string]interface{}{
					"type":        "array",
					"description": "Restrict matches to these file extensions (e.g. '.go')",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"directories": map[string]interface{}{
					"type":        "array",
					"description": "Restrict matches to files under these directories",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"includeHidden": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, match files in dot directories",
					"default":     false,
				},
				"maxResults": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"default":     10,
					"minimum":     1,
					"maximum":     types.MaxResultsLimit,
				},
			},
			Required: []string{"filePath"},
		},
	}
}
