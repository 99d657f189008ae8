package processor

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder turns query text into a vector comparable with the
// embeddings stored in the index. The index and the query path must
// use the same embedder for similarities to be meaningful.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// HashEmbedder is a deterministic feature-hashing embedder: each token
// is hashed into a bucket of a fixed-dimension vector, which is then
// L2-normalized. It needs no model or network access and is the
// default for locally built indexes and tests.
type HashEmbedder struct {
	Dim int
}

// NewHashEmbedder creates a HashEmbedder with the given dimension
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 128
	}
	return &HashEmbedder{Dim: dim}
}

// Embed implements Embedder
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, e.Dim)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()
		bucket := int(sum % uint32(e.Dim))
		// Sign bit from the hash spreads tokens across both directions
		if sum&0x80000000 != 0 {
			vector[bucket] -= 1
		} else {
			vector[bucket] += 1
		}
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}

	return vector, nil
}

// Dimension implements Embedder
func (e *HashEmbedder) Dimension() int { return e.Dim }
