package types

import (
	"errors"
	"time"
)

// Annotation describes one indexed AST node. Annotations are owned by
// the index reader; the query core treats them as immutable data.
type Annotation struct {
	// NodeID uniquely identifies the AST node within the index
	NodeID string

	// Content
	Signature string
	Summary   string

	// Location
	FilePath   string
	LineNumber int
	Language   string

	// Quality
	Confidence  float64 // 0.0 to 1.0
	LastUpdated time.Time

	// Structure
	NodeType string // function, class, method, module, ...
	ParentID string
}

// Validate checks the annotation invariants
func (a *Annotation) Validate() error {
	if a.NodeID == "" {
		return ErrMissingNodeID
	}
	if a.FilePath == "" {
		return ErrMissingFilePath
	}
	if a.LineNumber < 1 {
		return ErrInvalidLineNumber
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return ErrInvalidConfidence
	}
	return nil
}

// AnnotationMatch pairs an annotation with its relevance to a query
type AnnotationMatch struct {
	Annotation *Annotation
	// Score is the relevance of this match, 0.0 to 1.0
	Score float64
	// MatchReason describes why this result matched
	// ("exact filename match", "semantic similarity", ...)
	MatchReason string
	// ContextSnippet is the surrounding source text, when available
	ContextSnippet string
	// RelatedMatchIDs links to other matches in the same response
	RelatedMatchIDs []string
}

// Validate checks the match invariants
func (m *AnnotationMatch) Validate() error {
	if m.Annotation == nil {
		return ErrMissingAnnotation
	}
	if m.Score < 0 || m.Score > 1 {
		return ErrInvalidScore
	}
	return nil
}

// Annotation validation errors
var (
	ErrMissingNodeID     = errors.New("annotation node ID is required")
	ErrMissingFilePath   = errors.New("annotation file path is required")
	ErrInvalidLineNumber = errors.New("line number must be >= 1")
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
	ErrMissingAnnotation = errors.New("match annotation is required")
	ErrInvalidScore      = errors.New("match score must be between 0 and 1")
)
