package index

import (
	"context"
	"errors"

	"github.com/dshills/astquery-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// ContentMatch is one line-level hit from the index's text search
type ContentMatch struct {
	FilePath   string
	LineNumber int
	LineText   string
}

// VectorMatch pairs an annotation with its cosine similarity to a
// query vector
type VectorMatch struct {
	Annotation *types.Annotation
	Similarity float64
}

// Reader is the query core's view of the annotation index. The index
// is built elsewhere; everything here is read-only with respect to the
// serving path.
type Reader interface {
	// ListFiles returns every file path present in the index
	ListFiles(ctx context.Context) ([]string, error)

	// FileAnnotations returns all annotations within a file
	FileAnnotations(ctx context.Context, filePath string) ([]*types.Annotation, error)

	// RootAnnotation returns the file-level annotation (no parent) for
	// a file, or ErrNotFound when the file has none
	RootAnnotation(ctx context.Context, filePath string) (*types.Annotation, error)

	// Annotation returns one annotation by node ID
	Annotation(ctx context.Context, nodeID string) (*types.Annotation, error)

	// SearchContent runs the index's own text search over one file and
	// returns line/snippet matches
	SearchContent(ctx context.Context, filePath, text string, limit int) ([]ContentMatch, error)

	// SearchVector returns the annotations nearest to the query vector
	// by cosine similarity, best first
	SearchVector(ctx context.Context, vector []float32, limit int) ([]VectorMatch, error)

	// SearchSignatures looks up annotations by signature. Exact matches
	// compare normalized signatures; otherwise substring matches are
	// admitted.
	SearchSignatures(ctx context.Context, signature string, exact bool, caseSensitive bool, limit int) ([]*types.Annotation, error)

	// Close releases the underlying database handle
	Close() error
}
