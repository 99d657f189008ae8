// Package cache implements the query response cache: a bounded LRU
// keyed by a stable query fingerprint, with per-entry TTL, a periodic
// expiry sweep, and hit/miss accounting.
//
// The cache wraps hashicorp/golang-lru behind a single mutex so LRU
// eviction, TTL expiry, and the background sweep are serialized
// relative to concurrent Get/Set calls. Stored and returned responses
// are deep copies; callers never alias cached data.
package cache
