package processor

import (
	"context"

	"github.com/dshills/astquery-mcp/pkg/types"
)

// Request carries the inputs every specialized processor accepts
type Request struct {
	// Text is the preprocessed query text
	Text string
	// Options is the typed option variant for the query
	Options types.QueryOptions
	// MaxResults caps the result list
	MaxResults int
	// MinScore drops results below this relevance floor
	MinScore float64
	// CurrentFile hints at the caller's editor location, when known
	CurrentFile string
}

// Processor is the uniform contract every specialized query processor
// implements: file search internally, semantic and signature search by
// their respective backends. All implementations return the same
// QueryResponse shape.
type Processor interface {
	Process(ctx context.Context, req Request) (*types.QueryResponse, error)
}
