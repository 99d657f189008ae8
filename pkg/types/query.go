package types

import "errors"

// QueryType identifies which search strategy a query targets
type QueryType string

const (
	QueryTypeSemantic   QueryType = "semantic"
	QueryTypeSignature  QueryType = "signature"
	QueryTypeFile       QueryType = "file"
	QueryTypeContextual QueryType = "contextual"
)

// MaxResultsLimit is the hard cap on results a single query may request
const MaxResultsLimit = 1000

// ValidQueryType reports whether t is a known query type
func ValidQueryType(t QueryType) bool {
	switch t {
	case QueryTypeSemantic, QueryTypeSignature, QueryTypeFile, QueryTypeContextual:
		return true
	default:
		return false
	}
}

// QueryOptions is the per-type option set carried by a query.
// Exactly one concrete variant exists per QueryType so option access
// is exhaustive and statically checked.
type QueryOptions interface {
	// Kind returns the query type this option set belongs to
	Kind() QueryType
}

// SemanticOptions configures vector-similarity search
type SemanticOptions struct {
	// ContextBoost weights results near the current file higher.
	// Set automatically for contextual queries routed through the
	// semantic processor.
	ContextBoost bool
	// Languages restricts results to the given language tags
	Languages []string
}

// Kind implements QueryOptions
func (SemanticOptions) Kind() QueryType { return QueryTypeSemantic }

// SignatureOptions configures exact signature lookup
type SignatureOptions struct {
	ExactMatch    bool
	CaseSensitive bool
}

// Kind implements QueryOptions
func (SignatureOptions) Kind() QueryType { return QueryTypeSignature }

// FileOptions configures file-scoped search
type FileOptions struct {
	// Extensions filters candidates by file extension (".go", ".ts")
	Extensions []string
	// Directories filters candidates to the given path prefixes
	Directories []string
	// IncludeHidden admits dot-files and dot-directories
	IncludeHidden bool
}

// Kind implements QueryOptions
func (FileOptions) Kind() QueryType { return QueryTypeFile }

// ContextualOptions configures context-aware search. Contextual queries
// are served by the semantic processor with ContextBoost enabled; they
// carry no ranking algorithm of their own.
type ContextualOptions struct {
	Languages []string
}

// Kind implements QueryOptions
func (ContextualOptions) Kind() QueryType { return QueryTypeContextual }

// QueryContext carries editor state used to enrich and rank a query
type QueryContext struct {
	CurrentFile    string
	CursorPosition int
	SelectedText   string
	RecentFiles    []string
}

// Query is a single structured lookup against the annotation index
type Query struct {
	Type       QueryType
	Text       string
	Options    QueryOptions // nil means type defaults
	Context    *QueryContext
	MaxResults int     // 0 means server default
	MinScore   float64 // 0 means no floor
}

// Validate checks the query invariants. It reports the first violation
// found; a failed query must not be partially processed.
func (q *Query) Validate() error {
	if q.Text == "" {
		return ErrEmptyQueryText
	}
	if !ValidQueryType(q.Type) {
		return ErrUnknownQueryType
	}
	if q.MaxResults > MaxResultsLimit {
		return ErrMaxResultsExceeded
	}
	if q.MinScore < 0 || q.MinScore > 1 {
		return ErrInvalidMinScore
	}
	if q.Options != nil && q.Options.Kind() != q.Type {
		return ErrOptionsTypeMismatch
	}
	return nil
}

// Validation errors for queries
var (
	ErrEmptyQueryText      = errors.New("query text cannot be empty")
	ErrUnknownQueryType    = errors.New("unknown query type")
	ErrMaxResultsExceeded  = errors.New("maxResults exceeds limit of 1000")
	ErrInvalidMinScore     = errors.New("minScore must be between 0 and 1")
	ErrOptionsTypeMismatch = errors.New("options do not match query type")
)
