// Package assembler converts internal query responses into the
// protocol-facing payload: paginated content items with per-result
// metadata, code or text snippet rendering, a relevance explanation,
// merged query metadata with a performance breakdown, and a static
// capability advertisement.
//
// The assembler never mutates the response it formats. Its only
// mutable state is a running average of its own formatting latency,
// kept for self-monitoring.
package assembler
