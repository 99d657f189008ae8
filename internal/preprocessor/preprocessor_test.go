package preprocessor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/astquery-mcp/pkg/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "collapses whitespace and lowercases",
			input: "  Find   The  USER Function  ",
			want:  "find user function",
		},
		{
			name:  "drops stop words and short tokens",
			input: "the handler for a request in x",
			want:  "code handler request",
		},
		{
			name:  "keeps code vocabulary without hint",
			input: "authentication function handler",
			want:  "authentication function handler",
		},
		{
			name:  "adds code hint to short non-code query",
			input: "user login",
			want:  "code user login",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeLongQueryNoHint(t *testing.T) {
	// Over 30 chars: no "code " prefix even without code vocabulary
	input := "locate all database connection pooling helpers"
	got := Normalize(input)
	assert.False(t, strings.HasPrefix(got, "code "), "long queries must not get the code hint")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		input string
		want  types.QueryType
	}{
		{"getUserProfile(id string)", types.QueryTypeSignature},
		{"def authenticate", types.QueryTypeSignature},
		{"function handleRequest", types.QueryTypeSignature},
		{"src/**/*.go", types.QueryTypeFile},
		{"UserProfile.tsx", types.QueryTypeFile},
		{"internal/storage/sqlite.go", types.QueryTypeFile},
		{"methods related to authentication", types.QueryTypeContextual},
		{"what does this class do", types.QueryTypeContextual},
		{"similar to the cache layer", types.QueryTypeContextual},
		{"how is authentication handled", types.QueryTypeSemantic},
		{"error handling strategy", types.QueryTypeSemantic},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.input))
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	inputs := []string{
		"parseConfig(path)",
		"main.go",
		"related to parsing",
		"query orchestration",
	}
	for _, input := range inputs {
		first := Classify(input)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Classify(input))
		}
	}
}

func TestClassifySignatureNeverFileOrContextual(t *testing.T) {
	// Signature-shaped inputs win even when they contain file-ish or
	// contextual-ish fragments; the rule order guarantees it.
	inputs := []string{
		"loadFile(path string)",
		"def related_to_this(x)",
		"resolve(current file)",
	}
	for _, input := range inputs {
		got := Classify(input)
		assert.Equal(t, types.QueryTypeSignature, got, "input %q", input)
	}
}

func TestEnhanceWithContext(t *testing.T) {
	qctx := &types.QueryContext{
		CurrentFile:  "/src/internal/auth/handler.go",
		SelectedText: "ValidateToken",
	}

	got := EnhanceWithContext("token validation", qctx)
	assert.Contains(t, got, "[file: handler.go, ext: .go]")
	assert.Contains(t, got, "[selected: ValidateToken]")
	assert.True(t, strings.HasPrefix(got, "token validation"))
}

func TestEnhanceWithContextSkipsLongSelection(t *testing.T) {
	qctx := &types.QueryContext{
		CurrentFile:  "main.go",
		SelectedText: strings.Repeat("x", 120),
	}

	got := EnhanceWithContext("query", qctx)
	assert.NotContains(t, got, "[selected:")
}

func TestEnhanceWithContextNilContext(t *testing.T) {
	assert.Equal(t, "query", EnhanceWithContext("query", nil))
}
