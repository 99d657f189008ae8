// Package processor defines the uniform contract every specialized
// query processor implements, plus the semantic and signature
// implementations backed by the annotation index.
//
// The semantic processor runs vector similarity over the index's
// stored embeddings; contextual queries reach it with the context
// boost option set and receive a score bump for results near the
// caller's current file. The signature processor performs normalized
// exact (or substring) signature lookup. File queries are served by
// the fileproc package, which implements the same contract.
package processor
