package types

// SearchMetadata describes how a response was produced
type SearchMetadata struct {
	VectorSearchTimeMs float64
	RankingTimeMs      float64
	TotalCandidates    int
	AppliedFilters     []string
	SearchParameters   map[string]string
}

// QueryResponse is the uniform result shape returned by every
// specialized processor, internal or external.
type QueryResponse struct {
	Results        []AnnotationMatch
	TotalMatches   int
	QueryTimeMs    float64
	SearchStrategy string
	Metadata       SearchMetadata
}
