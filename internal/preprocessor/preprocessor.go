package preprocessor

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/astquery-mcp/pkg/types"
)

// stopWords are dropped during normalization. The list is fixed;
// changing it changes cache fingerprints for normalized queries.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"that": {}, "the": {}, "to": {}, "was": {}, "were": {}, "will": {},
	"with": {},
}

// codeVocabulary marks a query as already code-oriented. A normalized
// query containing none of these terms gets the "code " hint prefix.
var codeVocabulary = []string{
	"function", "class", "method", "variable",
	"interface", "type", "module", "component",
}

// codeHintMaxLen bounds how long a query may be and still receive the
// "code " hint prefix.
const codeHintMaxLen = 30

// selectedTextMaxLen bounds how long selected text may be and still be
// appended as a context hint.
const selectedTextMaxLen = 100

// Classification patterns, checked in order. First match wins and the
// order must not change: reordering silently reroutes queries.
var (
	// call-like text: identifier followed by an argument list
	callPattern = regexp.MustCompile(`^\s*[A-Za-z_][A-Za-z0-9_.]*\s*\(.*\)`)
	// glob, path separator, or a trailing file extension
	filePattern = regexp.MustCompile(`[*?\[\]]|/|\\|\.[A-Za-z0-9]{1,10}$`)
)

// contextualPhrases mark queries that reference the caller's editor state
var contextualPhrases = []string{
	"current file", "this class", "related to", "similar to",
}

// Normalize trims, collapses whitespace, lowercases, and strips stop
// words and sub-2-character tokens. Queries that contain no code
// vocabulary and remain under 30 characters are prefixed with "code "
// to bias downstream semantic matching.
func Normalize(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))

	tokens := strings.Fields(lowered)
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) < 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}

	normalized := strings.Join(kept, " ")

	if len(normalized) < codeHintMaxLen && !containsCodeVocabulary(normalized) {
		normalized = "code " + normalized
	}

	return normalized
}

// containsCodeVocabulary reports whether text mentions any recognized
// code term
func containsCodeVocabulary(text string) bool {
	for _, term := range codeVocabulary {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// Classify determines the query type from its raw text using ordered
// heuristics: signature > file > contextual > semantic. The same input
// always yields the same type.
func Classify(text string) types.QueryType {
	trimmed := strings.TrimSpace(text)
	lowered := strings.ToLower(trimmed)

	if callPattern.MatchString(trimmed) ||
		strings.HasPrefix(lowered, "def ") ||
		strings.HasPrefix(lowered, "function ") {
		return types.QueryTypeSignature
	}

	if filePattern.MatchString(trimmed) {
		return types.QueryTypeFile
	}

	for _, phrase := range contextualPhrases {
		if strings.Contains(lowered, phrase) {
			return types.QueryTypeContextual
		}
	}

	return types.QueryTypeSemantic
}

// EnhanceWithContext appends bracketed hints from the caller's editor
// state: the current file's base name and extension, and the selected
// text when it is short enough to be useful for ranking. Pure function
// of its inputs.
func EnhanceWithContext(text string, qctx *types.QueryContext) string {
	if qctx == nil {
		return text
	}

	enhanced := text

	if qctx.CurrentFile != "" {
		base := filepath.Base(qctx.CurrentFile)
		ext := filepath.Ext(qctx.CurrentFile)
		enhanced = fmt.Sprintf("%s [file: %s, ext: %s]", enhanced, base, ext)
	}

	if qctx.SelectedText != "" && len(qctx.SelectedText) < selectedTextMaxLen {
		enhanced = fmt.Sprintf("%s [selected: %s]", enhanced, qctx.SelectedText)
	}

	return enhanced
}
