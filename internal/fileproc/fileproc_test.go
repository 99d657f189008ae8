package fileproc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dshills/astquery-mcp/internal/index"
	"github.com/dshills/astquery-mcp/internal/processor"
	"github.com/dshills/astquery-mcp/pkg/types"
)

// fakeReader implements index.Reader over in-memory data
type fakeReader struct {
	files       []string
	roots       map[string]*types.Annotation
	rootErr     map[string]error
	content     map[string][]index.ContentMatch
	contentErrs map[string]error
}

func (f *fakeReader) ListFiles(context.Context) ([]string, error) { return f.files, nil }

func (f *fakeReader) FileAnnotations(_ context.Context, filePath string) ([]*types.Annotation, error) {
	if ann, ok := f.roots[filePath]; ok {
		return []*types.Annotation{ann}, nil
	}
	return nil, nil
}

func (f *fakeReader) RootAnnotation(_ context.Context, filePath string) (*types.Annotation, error) {
	if err, ok := f.rootErr[filePath]; ok {
		return nil, err
	}
	if ann, ok := f.roots[filePath]; ok {
		return ann, nil
	}
	return nil, index.ErrNotFound
}

func (f *fakeReader) Annotation(_ context.Context, nodeID string) (*types.Annotation, error) {
	for _, ann := range f.roots {
		if ann.NodeID == nodeID {
			return ann, nil
		}
	}
	return nil, index.ErrNotFound
}

func (f *fakeReader) SearchContent(_ context.Context, filePath, _ string, _ int) ([]index.ContentMatch, error) {
	if err, ok := f.contentErrs[filePath]; ok {
		return nil, err
	}
	return f.content[filePath], nil
}

func (f *fakeReader) SearchVector(context.Context, []float32, int) ([]index.VectorMatch, error) {
	return nil, nil
}

func (f *fakeReader) SearchSignatures(context.Context, string, bool, bool, int) ([]*types.Annotation, error) {
	return nil, nil
}

func (f *fakeReader) Close() error { return nil }

func newTestProcessor(files ...string) (*FileProcessor, *fakeReader) {
	reader := &fakeReader{
		files:       files,
		roots:       make(map[string]*types.Annotation),
		rootErr:     make(map[string]error),
		content:     make(map[string][]index.ContentMatch),
		contentErrs: make(map[string]error),
	}
	return New(reader, 0, zap.NewNop()), reader
}

func run(t *testing.T, p *FileProcessor, text string, opts types.FileOptions, limit int) *types.QueryResponse {
	t.Helper()
	resp, err := p.Process(context.Background(), processor.Request{
		Text:       text,
		Options:    opts,
		MaxResults: limit,
	})
	require.NoError(t, err)
	return resp
}

func TestExactFilenameMatch(t *testing.T) {
	p, _ := newTestProcessor(
		"src/components/UserProfile.tsx",
		"src/components/UserSettings.tsx",
	)

	resp := run(t, p, "UserProfile.tsx", types.FileOptions{}, 10)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1.0, resp.Results[0].Score)
	assert.Equal(t, "exact filename match", resp.Results[0].MatchReason)
	assert.Equal(t, "src/components/UserProfile.tsx", resp.Results[0].Annotation.FilePath)
}

func TestExactFilenameWithGlobMetachars(t *testing.T) {
	p, _ := newTestProcessor(
		"src/file[1].go",
		"src/other.go",
	)

	// The literal name wins even though "[1]" parses as a character
	// class; the exact-name rule does not depend on glob detection
	resp := run(t, p, "file[1].go", types.FileOptions{}, 10)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1.0, resp.Results[0].Score)
	assert.Equal(t, "exact filename match", resp.Results[0].MatchReason)
	assert.Equal(t, "src/file[1].go", resp.Results[0].Annotation.FilePath)
}

func TestExactPathMatch(t *testing.T) {
	p, _ := newTestProcessor(
		"internal/storage/sqlite.go",
		"cmd/sqlite.go",
	)

	resp := run(t, p, "internal/storage/sqlite.go", types.FileOptions{}, 10)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 0.95, resp.Results[0].Score)
	assert.Equal(t, "exact path match", resp.Results[0].MatchReason)
	assert.Equal(t, "internal/storage/sqlite.go", resp.Results[0].Annotation.FilePath)
}

func TestGlobMatch(t *testing.T) {
	p, _ := newTestProcessor(
		"internal/cache/lru.go",
		"internal/cache/lru_test.go",
		"docs/readme.md",
	)

	resp := run(t, p, "internal/cache/*.go", types.FileOptions{}, 10)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.Equal(t, 0.9, r.Score)
		assert.Equal(t, "glob pattern match", r.MatchReason)
	}
}

func TestSubstringMatch(t *testing.T) {
	p, _ := newTestProcessor("src/authentication_handler.go")

	resp := run(t, p, "handler.go", types.FileOptions{}, 10)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "partial match on filename", resp.Results[0].MatchReason)
	assert.GreaterOrEqual(t, resp.Results[0].Score, 0.8)
	assert.Less(t, resp.Results[0].Score, 0.95)
}

func TestFuzzyMatch(t *testing.T) {
	p, _ := newTestProcessor("src/handler.go")

	// "handlr.go" is one deletion away: similarity 9/10, score 0.9*0.7
	resp := run(t, p, "handlr.go", types.FileOptions{}, 10)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "fuzzy filename match", resp.Results[0].MatchReason)
	assert.InDelta(t, 0.63, resp.Results[0].Score, 0.01)
}

func TestFuzzyBelowThresholdRejected(t *testing.T) {
	p, _ := newTestProcessor("src/zzzz.rs")

	resp := run(t, p, "handler.go", types.FileOptions{}, 10)
	assert.Empty(t, resp.Results)
}

func TestHiddenFilesSkipped(t *testing.T) {
	p, _ := newTestProcessor(
		".github/workflows/ci.yml",
		"ci.yml",
	)

	resp := run(t, p, "ci.yml", types.FileOptions{}, 10)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "ci.yml", resp.Results[0].Annotation.FilePath)

	resp = run(t, p, "ci.yml", types.FileOptions{IncludeHidden: true}, 10)
	assert.Len(t, resp.Results, 2)
}

func TestExtensionAndDirectoryFilters(t *testing.T) {
	p, _ := newTestProcessor(
		"internal/cache/lru.go",
		"internal/cache/lru.ts",
		"pkg/cache/lru.go",
	)

	resp := run(t, p, "lru.go", types.FileOptions{
		Extensions:  []string{".go"},
		Directories: []string{"internal"},
	}, 10)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "internal/cache/lru.go", resp.Results[0].Annotation.FilePath)
}

func TestBestRuleWinsPerFile(t *testing.T) {
	p, _ := newTestProcessor("main.go")

	// Exact filename (1.0) outranks the fuzzy and substring rules for
	// the same file; only one result with the top score is returned.
	resp := run(t, p, "main.go", types.FileOptions{}, 10)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1.0, resp.Results[0].Score)
}

func TestResultCapAndOrdering(t *testing.T) {
	p, _ := newTestProcessor(
		"a/handler.go",
		"b/handler.go",
		"c/request_handler.go",
		"d/handlers.go",
	)

	resp := run(t, p, "handler.go", types.FileOptions{}, 2)
	require.Len(t, resp.Results, 2)
	assert.GreaterOrEqual(t, resp.Results[0].Score, resp.Results[1].Score)
	assert.Equal(t, 1.0, resp.Results[0].Score)
}

func TestRootAnnotationUsedWhenPresent(t *testing.T) {
	p, reader := newTestProcessor("src/main.go")
	reader.roots["src/main.go"] = &types.Annotation{
		NodeID:     "mod-main",
		FilePath:   "src/main.go",
		LineNumber: 1,
		Signature:  "package main",
		Confidence: 0.9,
	}

	resp := run(t, p, "main.go", types.FileOptions{}, 10)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "mod-main", resp.Results[0].Annotation.NodeID)
}

func TestSynthesizedAnnotationOnLookupFailure(t *testing.T) {
	p, reader := newTestProcessor("src/main.go")
	reader.rootErr["src/main.go"] = errors.New("index corrupted")

	resp := run(t, p, "main.go", types.FileOptions{}, 10)
	require.Len(t, resp.Results, 1, "a lookup failure must not abort the batch")

	ann := resp.Results[0].Annotation
	assert.Equal(t, "file-src/main.go", ann.NodeID)
	assert.Equal(t, 1, ann.LineNumber)
	assert.Equal(t, "file", ann.NodeType)
	assert.Equal(t, "go", ann.Language)
}

func TestSearchContentFanOut(t *testing.T) {
	p, reader := newTestProcessor("a.go", "b.go", "c.go")
	reader.content["a.go"] = []index.ContentMatch{{FilePath: "a.go", LineNumber: 3, LineText: "func Auth()"}}
	reader.content["c.go"] = []index.ContentMatch{{FilePath: "c.go", LineNumber: 9, LineText: "// Auth helper"}}
	reader.contentErrs["b.go"] = errors.New("read failed")

	matches, err := p.SearchContent(context.Background(), "Auth", nil, 10)
	require.NoError(t, err, "a failing file must not fail the batch")
	assert.Len(t, matches, 2)
}

func TestSearchContentWithAllowList(t *testing.T) {
	p, reader := newTestProcessor("a.go", "b.go")
	reader.content["a.go"] = []index.ContentMatch{{FilePath: "a.go", LineNumber: 1, LineText: "match"}}
	reader.content["b.go"] = []index.ContentMatch{{FilePath: "b.go", LineNumber: 1, LineText: "match"}}

	matches, err := p.SearchContent(context.Background(), "match", []string{"a.go"}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a.go", matches[0].FilePath)
}
