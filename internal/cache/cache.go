package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/astquery-mcp/pkg/types"
)

const (
	// DefaultCapacity is the cache entry limit when none is configured
	DefaultCapacity = 1000
	// DefaultTTL applies to entries stored without an explicit TTL
	DefaultTTL = 5 * time.Minute
	// DefaultSweepInterval is how often the background sweep purges
	// expired entries
	DefaultSweepInterval = 1 * time.Minute
)

// entry is a cached response with its expiry and access bookkeeping
type entry struct {
	response       *types.QueryResponse
	createdAt      time.Time
	ttl            time.Duration
	accessCount    int64
	lastAccessedAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Stats is a point-in-time snapshot of cache counters
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	Capacity  int
}

// HitRatio returns hits/(hits+misses), or 0 before any access
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// ResponseCache is a bounded LRU cache of query responses with
// per-entry TTL. All mutations are serialized by a single mutex so
// eviction, expiry, and the periodic sweep never race with Get/Set.
type ResponseCache struct {
	mu         sync.Mutex
	lru        *lru.Cache[Fingerprint, *entry]
	capacity   int
	defaultTTL time.Duration

	hits      int64
	misses    int64
	evictions int64

	done chan struct{}
	once sync.Once
}

// Option configures a ResponseCache
type Option func(*config)

type config struct {
	capacity      int
	defaultTTL    time.Duration
	sweepInterval time.Duration
}

// WithCapacity sets the maximum entry count
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithDefaultTTL sets the TTL applied when Set is called without one
func WithDefaultTTL(d time.Duration) Option {
	return func(c *config) { c.defaultTTL = d }
}

// WithSweepInterval sets how often expired entries are proactively purged
func WithSweepInterval(d time.Duration) Option {
	return func(c *config) { c.sweepInterval = d }
}

// New creates a ResponseCache and starts its background sweep
func New(opts ...Option) (*ResponseCache, error) {
	cfg := config{
		capacity:      DefaultCapacity,
		defaultTTL:    DefaultTTL,
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	inner, err := lru.New[Fingerprint, *entry](cfg.capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	c := &ResponseCache{
		lru:        inner,
		capacity:   cfg.capacity,
		defaultTTL: cfg.defaultTTL,
		done:       make(chan struct{}),
	}

	go c.sweepLoop(cfg.sweepInterval)

	return c, nil
}

// Get returns the cached response for key, or nil and false on a miss.
// An expired entry is purged and counts as a miss. A hit promotes the
// entry to most-recently-used and updates its access bookkeeping.
func (c *ResponseCache) Get(key Fingerprint) (*types.QueryResponse, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	ent, found := c.lru.Get(key)
	if !found {
		c.misses++
		return nil, false
	}

	if ent.expired(now) {
		c.lru.Remove(key)
		c.misses++
		return nil, false
	}

	ent.accessCount++
	ent.lastAccessedAt = now
	c.hits++

	return copyResponse(ent.response), true
}

// Set stores a response under key, replacing any existing entry. When
// the cache is at capacity the least-recently-used entry is evicted
// first. A zero ttl means the cache default.
func (c *ResponseCache) Set(key Fingerprint, response *types.QueryResponse, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := time.Now()
	ent := &entry{
		response:       copyResponse(response),
		createdAt:      now,
		ttl:            ttl,
		lastAccessedAt: now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if evicted := c.lru.Add(key, ent); evicted {
		c.evictions++
	}
}

// Stats returns a consistent snapshot of the cache counters
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.lru.Len(),
		Capacity:  c.capacity,
	}
}

// Purge removes every entry. Hit/miss counters are preserved.
func (c *ResponseCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Close stops the background sweep. The cache remains usable after
// Close; only proactive expiry stops.
func (c *ResponseCache) Close() {
	c.once.Do(func() { close(c.done) })
}

// sweepLoop periodically purges expired entries so memory stays bounded
// even for keys that are never re-accessed
func (c *ResponseCache) sweepLoop(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep removes all expired entries under the cache mutex
func (c *ResponseCache) sweep() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.lru.Keys() {
		ent, ok := c.lru.Peek(key)
		if ok && ent.expired(now) {
			c.lru.Remove(key)
		}
	}
}

// copyResponse deep-copies a response so cached data is never aliased
// by callers
func copyResponse(src *types.QueryResponse) *types.QueryResponse {
	if src == nil {
		return nil
	}

	dst := &types.QueryResponse{
		TotalMatches:   src.TotalMatches,
		QueryTimeMs:    src.QueryTimeMs,
		SearchStrategy: src.SearchStrategy,
		Metadata: types.SearchMetadata{
			VectorSearchTimeMs: src.Metadata.VectorSearchTimeMs,
			RankingTimeMs:      src.Metadata.RankingTimeMs,
			TotalCandidates:    src.Metadata.TotalCandidates,
		},
		Results: make([]types.AnnotationMatch, len(src.Results)),
	}

	if src.Metadata.AppliedFilters != nil {
		dst.Metadata.AppliedFilters = append([]string(nil), src.Metadata.AppliedFilters...)
	}
	if src.Metadata.SearchParameters != nil {
		dst.Metadata.SearchParameters = make(map[string]string, len(src.Metadata.SearchParameters))
		for k, v := range src.Metadata.SearchParameters {
			dst.Metadata.SearchParameters[k] = v
		}
	}

	for i, match := range src.Results {
		dst.Results[i] = types.AnnotationMatch{
			Score:          match.Score,
			MatchReason:    match.MatchReason,
			ContextSnippet: match.ContextSnippet,
		}
		if match.Annotation != nil {
			// Annotations are immutable index data; a shallow copy of
			// the struct is sufficient.
			annCopy := *match.Annotation
			dst.Results[i].Annotation = &annCopy
		}
		if match.RelatedMatchIDs != nil {
			dst.Results[i].RelatedMatchIDs = append([]string(nil), match.RelatedMatchIDs...)
		}
	}

	return dst
}
