// Package perf implements the performance side of the query core:
// a rolling latency window with p50/p95/p99 percentiles, aggregate
// query statistics, and threshold-based alerting.
//
// Alert evaluation is split by cost: query_time alerts fire inline on
// each recorded sample, while cache_hit_ratio and memory_usage alerts
// are evaluated on a periodic collection tick. Alert handlers are an
// explicit observer list invoked synchronously, each call isolated by
// its own recover boundary so a broken handler cannot affect the query
// that triggered it.
package perf
