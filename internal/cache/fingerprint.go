package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/dshills/astquery-mcp/pkg/types"
)

// Fingerprint is a stable derived key summarizing a query's type,
// normalized text, and options
type Fingerprint [32]byte

// ComputeFingerprint derives the cache key for a query. The same
// logical query always produces the same fingerprint: fields are
// serialized in a fixed order with fixed formatting.
func ComputeFingerprint(queryType types.QueryType, normalizedText string, opts types.QueryOptions, maxResults int, minScore float64) Fingerprint {
	var data strings.Builder
	data.WriteString(string(queryType))
	data.WriteString("|")
	data.WriteString(normalizedText)
	data.WriteString("|")
	data.WriteString(serializeOptions(opts))
	data.WriteString("|")
	fmt.Fprintf(&data, "%d|%.4f", maxResults, minScore)

	return sha256.Sum256([]byte(data.String()))
}

// serializeOptions renders an option variant deterministically. Each
// variant has a fixed field order; slice fields are joined in input
// order (callers are expected to pass stable filter lists).
func serializeOptions(opts types.QueryOptions) string {
	switch o := opts.(type) {
	case types.SemanticOptions:
		return fmt.Sprintf("sem:boost=%t,langs=%s", o.ContextBoost, strings.Join(o.Languages, ","))
	case types.SignatureOptions:
		return fmt.Sprintf("sig:exact=%t,case=%t", o.ExactMatch, o.CaseSensitive)
	case types.FileOptions:
		return fmt.Sprintf("file:ext=%s,dirs=%s,hidden=%t",
			strings.Join(o.Extensions, ","), strings.Join(o.Directories, ","), o.IncludeHidden)
	case types.ContextualOptions:
		return fmt.Sprintf("ctx:langs=%s", strings.Join(o.Languages, ","))
	case nil:
		return "none"
	default:
		return fmt.Sprintf("%v", opts)
	}
}
