// Package mcp implements the Model Context Protocol (MCP) server for
// the annotation query pipeline.
//
// The server exposes four tools to AI coding assistants:
//   - semantic_query: Search annotations by natural-language meaning
//   - signature_query: Look up annotations by function or type signature
//   - file_query: Find indexed files by name, path, glob, or fuzzy match
//   - get_query_stats: Report performance counters and recent alerts
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// stdout is reserved for protocol traffic; all logging goes to stderr.
//
// # Basic Usage
//
// The server is typically started via the serve command:
//
//	astquery serve
//
// It then listens on stdin for MCP messages and writes responses to
// stdout.
//
// # Tool: semantic_query
//
//	Request:
//	{
//	  "name": "semantic_query",
//	  "arguments": {
//	    "text": "where do we retry failed writes",
//	    "maxResults": 10,
//	    "minScore": 0.5,
//	    "currentFile": "internal/store/writer.go"
//	  }
//	}
//
// When currentFile or selectedText is present the lookup runs as a
// contextual query: results in or near the current file rank higher.
//
// # Tool: signature_query
//
//	Request:
//	{
//	  "name": "signature_query",
//	  "arguments": {
//	    "signature": "func Connect(addr string) (*Conn, error)",
//	    "exactMatch": true
//	  }
//	}
//
// # Tool: file_query
//
//	Request:
//	{
//	  "name": "file_query",
//	  "arguments": {
//	    "filePath": "internal/**/*.go",
//	    "extensions": [".go"]
//	  }
//	}
//
// All three query tools return the assembled response payload: content
// items with snippets and relevance explanations, pagination, and the
// query metadata block.
//
// # Error Handling
//
// The server returns standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32001,
//	    "message": "query text cannot be empty"
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (index, filesystem, etc.)
//   - -32001: Empty query text
//   - -32002: maxResults exceeds the server limit
//   - -32003: Unknown query type
package mcp
