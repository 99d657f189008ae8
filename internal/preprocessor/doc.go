// Package preprocessor implements pure text transforms applied to a
// query before routing: whitespace and stop-word normalization,
// heuristic query-type classification, and context-based enrichment.
//
// All functions are stateless and deterministic. Classification uses
// ordered pattern checks (signature, then file, then contextual, then
// semantic); the order is part of the behavioral contract.
package preprocessor
