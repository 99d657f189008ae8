package assembler

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dshills/astquery-mcp/pkg/types"
)

const (
	// ResponseType identifies a query result payload
	ResponseType = "query_results"

	// DefaultPageSize is used when the caller requests no page size
	DefaultPageSize = 20
	// DefaultMaxContentLength bounds rendered text per content item
	DefaultMaxContentLength = 2000
)

// SnippetMode selects how a result with a context snippet is rendered
type SnippetMode string

const (
	// SnippetModeCode renders snippets as numbered code blocks with a
	// pointer marker at the match line
	SnippetModeCode SnippetMode = "code"
	// SnippetModeText renders the plain signature and summary
	SnippetModeText SnippetMode = "text"
)

// ContentItem is one rendered result in the protocol payload
type ContentItem struct {
	Type     string          `json:"type"` // code | text | resource
	Text     string          `json:"text"`
	Language string          `json:"language,omitempty"`
	Metadata ContentMetadata `json:"metadata"`
}

// ContentMetadata carries the per-result fields protocol clients use
// for display and navigation
type ContentMetadata struct {
	Score       float64 `json:"score"`
	FilePath    string  `json:"filePath"`
	LineNumber  int     `json:"lineNumber"`
	Signature   string  `json:"signature"`
	Summary     string  `json:"summary,omitempty"`
	MatchReason string  `json:"matchReason"`
	Relevance   string  `json:"relevance,omitempty"`
}

// Pagination describes the slice of results a response carries
type Pagination struct {
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	HasMore  bool   `json:"hasMore"`
	NextPage string `json:"nextPage,omitempty"`
}

// QueryMetadata merges search metadata with the query identity and a
// performance breakdown
type QueryMetadata struct {
	QueryType          string            `json:"queryType"`
	QueryText          string            `json:"queryText"`
	SearchStrategy     string            `json:"searchStrategy"`
	TotalCandidates    int               `json:"totalCandidates"`
	AppliedFilters     []string          `json:"appliedFilters,omitempty"`
	SearchParameters   map[string]string `json:"searchParameters,omitempty"`
	TotalTimeMs        float64           `json:"totalTimeMs"`
	VectorSearchTimeMs float64           `json:"vectorSearchTimeMs"`
	RankingTimeMs      float64           `json:"rankingTimeMs"`
	FormattingTimeMs   float64           `json:"formattingTimeMs"`
}

// Response is the protocol-facing query result payload
type Response struct {
	ResponseType     string        `json:"responseType"`
	Timestamp        time.Time     `json:"timestamp"`
	RequestID        string        `json:"requestId,omitempty"`
	ProcessingTimeMs float64       `json:"processingTimeMs"`
	Content          []ContentItem `json:"content"`
	Pagination       Pagination    `json:"pagination"`
	QueryMetadata    QueryMetadata `json:"queryMetadata"`
	Capabilities     Capabilities  `json:"capabilities"`
}

// Assembler converts internal query responses into the protocol shape.
// It is safe for concurrent use; the only mutable state is its own
// formatting-latency average.
type Assembler struct {
	pageSize      int
	maxContentLen int
	snippetMode   SnippetMode

	mu          sync.Mutex
	formatCount int64
	formatAvgMs float64
}

// Option configures an Assembler
type Option func(*Assembler)

// WithPageSize sets the default page size
func WithPageSize(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

// WithMaxContentLength bounds rendered text per item
func WithMaxContentLength(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.maxContentLen = n
		}
	}
}

// WithSnippetMode selects the snippet rendering
func WithSnippetMode(mode SnippetMode) Option {
	return func(a *Assembler) { a.snippetMode = mode }
}

// New creates an Assembler
func New(opts ...Option) *Assembler {
	a := &Assembler{
		pageSize:      DefaultPageSize,
		maxContentLen: DefaultMaxContentLength,
		snippetMode:   SnippetModeCode,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble converts an internal response into the protocol shape for
// one page. Page numbers are 1-based; page and pageSize of 0 mean
// defaults. The input response is never mutated.
func (a *Assembler) Assemble(resp *types.QueryResponse, query *types.Query, requestID string, page, pageSize int) *Response {
	formatStart := time.Now()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = a.pageSize
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	total := resp.TotalMatches
	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	hasMore := page < totalPages

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(resp.Results) {
		start = len(resp.Results)
	}
	if end > len(resp.Results) {
		end = len(resp.Results)
	}
	pageResults := resp.Results[start:end]

	content := make([]ContentItem, 0, len(pageResults))
	for _, match := range pageResults {
		content = append(content, a.formatMatch(match))
	}

	pagination := Pagination{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  hasMore,
	}
	if hasMore {
		pagination.NextPage = fmt.Sprintf("%s:%d", requestID, page+1)
	}

	formatMs := float64(time.Since(formatStart).Microseconds()) / 1000.0
	a.recordFormatLatency(formatMs)

	return &Response{
		ResponseType:     ResponseType,
		Timestamp:        time.Now().UTC(),
		RequestID:        requestID,
		ProcessingTimeMs: resp.QueryTimeMs + formatMs,
		Content:          content,
		Pagination:       pagination,
		QueryMetadata: QueryMetadata{
			QueryType:          string(query.Type),
			QueryText:          query.Text,
			SearchStrategy:     resp.SearchStrategy,
			TotalCandidates:    resp.Metadata.TotalCandidates,
			AppliedFilters:     resp.Metadata.AppliedFilters,
			SearchParameters:   resp.Metadata.SearchParameters,
			TotalTimeMs:        resp.QueryTimeMs + formatMs,
			VectorSearchTimeMs: resp.Metadata.VectorSearchTimeMs,
			RankingTimeMs:      resp.Metadata.RankingTimeMs,
			FormattingTimeMs:   formatMs,
		},
		Capabilities: ServerCapabilities(),
	}
}

// formatMatch renders one annotation match as a content item
func (a *Assembler) formatMatch(match types.AnnotationMatch) ContentItem {
	ann := match.Annotation

	language := ann.Language
	if language == "" {
		language = types.LanguageForPath(ann.FilePath)
	}

	var itemType, text string
	if match.ContextSnippet != "" && a.snippetMode == SnippetModeCode {
		itemType = "code"
		text = renderCodeSnippet(match.ContextSnippet, ann.LineNumber)
	} else {
		itemType = "text"
		text = ann.Signature
		if ann.Summary != "" {
			text += "\n" + ann.Summary
		}
	}

	return ContentItem{
		Type:     itemType,
		Text:     Truncate(text, a.maxContentLen),
		Language: language,
		Metadata: ContentMetadata{
			Score:       match.Score,
			FilePath:    ann.FilePath,
			LineNumber:  ann.LineNumber,
			Signature:   ann.Signature,
			Summary:     ann.Summary,
			MatchReason: match.MatchReason,
			Relevance:   RelevanceExplanation(match.Score, match.MatchReason),
		},
	}
}

// renderCodeSnippet numbers each snippet line and marks the match line
// with a pointer. The snippet is assumed to start at the match line
// minus half its height, clamped to line 1.
func renderCodeSnippet(snippet string, matchLine int) string {
	lines := strings.Split(snippet, "\n")

	firstLine := matchLine - len(lines)/2
	if firstLine < 1 {
		firstLine = 1
	}

	var b strings.Builder
	for i, line := range lines {
		lineNo := firstLine + i
		marker := "  "
		if lineNo == matchLine {
			marker = "→ "
		}
		fmt.Fprintf(&b, "%s%4d | %s\n", marker, lineNo, line)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RelevanceExplanation builds a human-readable explanation from the
// match reason, prefixed with the integer score percentage
func RelevanceExplanation(score float64, matchReason string) string {
	pct := int(score * 100)

	var parts []string
	if strings.Contains(matchReason, "semantic similarity") {
		parts = append(parts, "semantically similar to the query")
	}
	if strings.Contains(matchReason, "context relevance") {
		parts = append(parts, "relevant to the current editing context")
	}
	if strings.Contains(matchReason, "exact") {
		parts = append(parts, "exact match")
	}
	if strings.Contains(matchReason, "partial") || strings.Contains(matchReason, "fuzzy") {
		parts = append(parts, "partial match")
	}
	if len(parts) == 0 {
		parts = append(parts, matchReason)
	}

	return fmt.Sprintf("%d%% relevance: %s", pct, strings.Join(parts, "; "))
}

// Truncate bounds text to maxLen characters, preferring to break at the
// last space when that space falls within the final 20% of the limit,
// and appending an ellipsis
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}

	// Never split a multi-byte rune; snippets carry the marker arrow
	// and whatever the source file held
	end := maxLen
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}

	cut := text[:end]
	if idx := strings.LastIndex(cut, " "); idx >= int(float64(maxLen)*0.8) {
		cut = cut[:idx]
	}
	return cut + "..."
}

// recordFormatLatency folds one sample into the running average of the
// assembler's own formatting time
func (a *Assembler) recordFormatLatency(ms float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.formatCount++
	a.formatAvgMs += (ms - a.formatAvgMs) / float64(a.formatCount)
}

// AverageFormatLatencyMs reports the running formatting-latency average
func (a *Assembler) AverageFormatLatencyMs() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.formatAvgMs
}
