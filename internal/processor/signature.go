package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/astquery-mcp/internal/index"
	"github.com/dshills/astquery-mcp/pkg/types"
)

// SignatureProcessor serves signature queries by normalized lookup in
// the index
type SignatureProcessor struct {
	reader index.Reader
}

// NewSignature creates a SignatureProcessor
func NewSignature(reader index.Reader) *SignatureProcessor {
	return &SignatureProcessor{reader: reader}
}

// Process implements the Processor contract
func (p *SignatureProcessor) Process(ctx context.Context, req Request) (*types.QueryResponse, error) {
	opts, ok := req.Options.(types.SignatureOptions)
	if !ok {
		// Signature queries default to exact matching
		opts = types.SignatureOptions{ExactMatch: true}
	}

	limit := req.MaxResults
	if limit <= 0 {
		limit = 10
	}

	start := time.Now()
	annotations, err := p.reader.SearchSignatures(ctx, req.Text, opts.ExactMatch, opts.CaseSensitive, limit)
	if err != nil {
		return nil, fmt.Errorf("signature search failed: %w", err)
	}
	rankTime := time.Since(start)

	results := make([]types.AnnotationMatch, 0, len(annotations))
	for _, ann := range annotations {
		score := 1.0
		reason := "exact match"
		if !opts.ExactMatch {
			// Partial matches score by how much of the stored signature
			// the query covers
			score = float64(len(index.NormalizeSignature(req.Text))) / float64(len(index.NormalizeSignature(ann.Signature)))
			if score > 1 {
				score = 1
			}
			reason = "partial match"
		}
		if score < req.MinScore {
			continue
		}
		results = append(results, types.AnnotationMatch{
			Annotation:  ann,
			Score:       score,
			MatchReason: reason,
		})
	}

	return &types.QueryResponse{
		Results:        results,
		TotalMatches:   len(results),
		SearchStrategy: "signature",
		Metadata: types.SearchMetadata{
			RankingTimeMs:   float64(rankTime.Microseconds()) / 1000.0,
			TotalCandidates: len(annotations),
			SearchParameters: map[string]string{
				"exactMatch":    fmt.Sprintf("%t", opts.ExactMatch),
				"caseSensitive": fmt.Sprintf("%t", opts.CaseSensitive),
			},
		},
	}, nil
}
