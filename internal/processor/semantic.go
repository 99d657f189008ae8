package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dshills/astquery-mcp/internal/index"
	"github.com/dshills/astquery-mcp/pkg/types"
)

// contextBoostFactor is the score multiplier applied to results in or
// near the caller's current file when context boost is enabled
const contextBoostFactor = 1.2

// SemanticProcessor serves semantic and contextual queries by vector
// similarity over the index's stored annotation embeddings
type SemanticProcessor struct {
	reader   index.Reader
	embedder Embedder
}

// NewSemantic creates a SemanticProcessor
func NewSemantic(reader index.Reader, embedder Embedder) *SemanticProcessor {
	return &SemanticProcessor{reader: reader, embedder: embedder}
}

// Process implements the Processor contract
func (p *SemanticProcessor) Process(ctx context.Context, req Request) (*types.QueryResponse, error) {
	opts, _ := req.Options.(types.SemanticOptions)

	limit := req.MaxResults
	if limit <= 0 {
		limit = 10
	}

	vector, err := p.embedder.Embed(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	vectorStart := time.Now()
	// Over-fetch so language filtering and the score floor still leave
	// enough candidates
	candidates, err := p.reader.SearchVector(ctx, vector, limit*2)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	vectorTime := time.Since(vectorStart)

	rankStart := time.Now()
	results := make([]types.AnnotationMatch, 0, limit)
	for _, c := range candidates {
		if len(opts.Languages) > 0 && !containsString(opts.Languages, c.Annotation.Language) {
			continue
		}

		score := c.Similarity
		reason := "semantic similarity"
		if opts.ContextBoost && req.CurrentFile != "" && sameNeighborhood(c.Annotation.FilePath, req.CurrentFile) {
			score *= contextBoostFactor
			reason = "semantic similarity, context relevance"
		}
		if score > 1 {
			score = 1
		}
		if score < req.MinScore {
			continue
		}

		results = append(results, types.AnnotationMatch{
			Annotation:  c.Annotation,
			Score:       score,
			MatchReason: reason,
		})
		if len(results) >= limit {
			break
		}
	}
	rankTime := time.Since(rankStart)

	strategy := "semantic"
	if opts.ContextBoost {
		strategy = "semantic+context"
	}

	return &types.QueryResponse{
		Results:        results,
		TotalMatches:   len(results),
		SearchStrategy: strategy,
		Metadata: types.SearchMetadata{
			VectorSearchTimeMs: float64(vectorTime.Microseconds()) / 1000.0,
			RankingTimeMs:      float64(rankTime.Microseconds()) / 1000.0,
			TotalCandidates:    len(candidates),
			AppliedFilters:     appliedFilters(opts, req.MinScore),
			SearchParameters: map[string]string{
				"contextBoost": fmt.Sprintf("%t", opts.ContextBoost),
			},
		},
	}, nil
}

// sameNeighborhood reports whether two paths share a file or directory
func sameNeighborhood(a, b string) bool {
	if a == b {
		return true
	}
	return filepath.Dir(a) == filepath.Dir(b)
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func appliedFilters(opts types.SemanticOptions, minScore float64) []string {
	var filters []string
	if len(opts.Languages) > 0 {
		filters = append(filters, "languages")
	}
	if minScore > 0 {
		filters = append(filters, "minScore")
	}
	return filters
}
