// Package types defines the shared data model for the astquery query core.
//
// The central types are:
//   - Query: a structured lookup with a type, text, typed options, and
//     optional editor context
//   - QueryResponse: the uniform result shape every specialized processor
//     returns
//   - Annotation: one indexed AST node, owned by the index reader and
//     treated as immutable by the query core
//   - AnnotationMatch: an annotation scored against a query
//
// Query options form a tagged union: each QueryType has exactly one
// concrete QueryOptions variant, so routing and option access are
// exhaustive and statically checked rather than driven by a dynamic
// options bag.
package types
