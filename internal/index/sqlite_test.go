package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/astquery-mcp/pkg/types"
)

func newTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func seedAnnotation(t *testing.T, idx *SQLiteIndex, nodeID, filePath string, line int, signature string, parentID string) {
	t.Helper()
	err := idx.UpsertAnnotation(context.Background(), &types.Annotation{
		NodeID:      nodeID,
		FilePath:    filePath,
		LineNumber:  line,
		Signature:   signature,
		Language:    "go",
		Confidence:  0.9,
		NodeType:    "function",
		ParentID:    parentID,
		LastUpdated: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestAnnotationRoundTrip(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	seedAnnotation(t, idx, "fn-1", "internal/auth/handler.go", 42, "func ValidateToken(token string) error", "file-root")

	ann, err := idx.Annotation(ctx, "fn-1")
	require.NoError(t, err)
	assert.Equal(t, "internal/auth/handler.go", ann.FilePath)
	assert.Equal(t, 42, ann.LineNumber)
	assert.Equal(t, "func ValidateToken(token string) error", ann.Signature)
	assert.Equal(t, "file-root", ann.ParentID)
}

func TestAnnotationNotFound(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Annotation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFiles(t *testing.T) {
	idx := newTestIndex(t)

	seedAnnotation(t, idx, "a", "src/a.go", 1, "package a", "")
	seedAnnotation(t, idx, "b", "src/b.go", 1, "package b", "")
	seedAnnotation(t, idx, "b2", "src/b.go", 10, "func B()", "b")

	files, err := idx.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.go", "src/b.go"}, files)
}

func TestRootAnnotation(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	seedAnnotation(t, idx, "root", "src/a.go", 1, "package a", "")
	seedAnnotation(t, idx, "child", "src/a.go", 5, "func A()", "root")

	root, err := idx.RootAnnotation(ctx, "src/a.go")
	require.NoError(t, err)
	assert.Equal(t, "root", root.NodeID)

	_, err = idx.RootAnnotation(ctx, "src/missing.go")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.UpsertFileLines(ctx, "src/a.go", []string{
		"package a",
		"",
		"func Authenticate(user string) error {",
		"\treturn checkCredentials(user)",
		"}",
	}))

	matches, err := idx.SearchContent(ctx, "src/a.go", "Authenticate", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 3, matches[0].LineNumber)
	assert.Contains(t, matches[0].LineText, "Authenticate")
}

func TestSearchContentEscapesLikeMetacharacters(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.UpsertFileLines(ctx, "src/a.go", []string{
		"format := \"100%\"",
		"other line",
	}))

	matches, err := idx.SearchContent(ctx, "src/a.go", "100%", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].LineNumber)
}

func TestSearchSignaturesExact(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	seedAnnotation(t, idx, "fn-1", "a.go", 1, "func ValidateToken(token string) error", "")
	seedAnnotation(t, idx, "fn-2", "a.go", 10, "func validateInput(in string) error", "")

	// Case-insensitive exact match uses the normalized form
	matches, err := idx.SearchSignatures(ctx, "FUNC VALIDATETOKEN(TOKEN STRING) ERROR", true, false, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "fn-1", matches[0].NodeID)

	// Case-sensitive exact match requires the stored form
	matches, err = idx.SearchSignatures(ctx, "FUNC VALIDATETOKEN(TOKEN STRING) ERROR", true, true, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// Partial match admits substrings
	matches, err = idx.SearchSignatures(ctx, "validate", false, false, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestSearchVector(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	seedAnnotation(t, idx, "near", "a.go", 1, "func Near()", "")
	seedAnnotation(t, idx, "far", "a.go", 2, "func Far()", "")

	require.NoError(t, idx.UpsertEmbedding(ctx, "near", []float32{1, 0, 0}))
	require.NoError(t, idx.UpsertEmbedding(ctx, "far", []float32{0, 1, 0}))

	matches, err := idx.SearchVector(ctx, []float32{0.9, 0.1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "near", matches[0].Annotation.NodeID)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)
}

func TestVectorSerializationRoundTrip(t *testing.T) {
	original := []float32{0.25, -1.5, 3.75, 0}
	blob := SerializeVector(original)

	decoded, err := DeserializeVector(blob, len(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	_, err = DeserializeVector(blob, 3)
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
