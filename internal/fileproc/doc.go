// Package fileproc implements the file-scoped query processor: exact,
// glob, substring, and fuzzy (normalized Levenshtein) filename matching
// over the files known to the annotation index, plus a content search
// entry point that delegates line matching to the index's own text
// search.
//
// Matching evaluates a fixed rule ladder per candidate file and keeps
// only the highest-scoring rule: exact filename (1.0), exact path
// (0.95), glob (0.9), filename substring (>= 0.8), then fuzzy
// similarity scaled by 0.7 and gated by a configurable threshold.
// A per-file annotation lookup failure is recovered locally with a
// synthesized file-<path> virtual node; it never aborts the batch.
package fileproc
