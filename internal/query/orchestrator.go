package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/astquery-mcp/internal/assembler"
	"github.com/dshills/astquery-mcp/internal/cache"
	"github.com/dshills/astquery-mcp/internal/perf"
	"github.com/dshills/astquery-mcp/internal/preprocessor"
	"github.com/dshills/astquery-mcp/internal/processor"
	"github.com/dshills/astquery-mcp/pkg/types"
)

// DefaultMaxResults applies when a query requests no result cap
const DefaultMaxResults = 10

// Orchestrator owns the query pipeline: validation, classification,
// cache lookup, routing to the specialized processors, performance
// tracking, and optional protocol assembly. It holds the cache and
// stats instances for the lifetime of the process; processors are
// stateless with respect to both.
type Orchestrator struct {
	cache     *cache.ResponseCache
	tracker   *perf.Tracker
	assembler *assembler.Assembler

	semantic  processor.Processor
	signature processor.Processor
	file      processor.Processor

	cacheTTL   time.Duration
	maxLatency time.Duration
	log        *zap.Logger
}

// Config wires an Orchestrator's collaborators
type Config struct {
	Cache     *cache.ResponseCache
	Tracker   *perf.Tracker
	Assembler *assembler.Assembler

	Semantic  processor.Processor
	Signature processor.Processor
	File      processor.Processor

	// CacheTTL is the TTL for stored responses; zero means the cache
	// default
	CacheTTL time.Duration
	// MaxLatency is the SLA budget; slower queries are logged as
	// breaches but still returned
	MaxLatency time.Duration

	Logger *zap.Logger
}

// New creates an Orchestrator and points the tracker's hit-ratio
// source at the cache
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Cache == nil || cfg.Tracker == nil {
		return nil, fmt.Errorf("cache and tracker are required")
	}
	if cfg.Semantic == nil || cfg.Signature == nil || cfg.File == nil {
		return nil, fmt.Errorf("all three specialized processors are required")
	}
	if cfg.Assembler == nil {
		cfg.Assembler = assembler.New()
	}
	if cfg.MaxLatency <= 0 {
		cfg.MaxLatency = perf.DefaultSLALatency
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	o := &Orchestrator{
		cache:      cfg.Cache,
		tracker:    cfg.Tracker,
		assembler:  cfg.Assembler,
		semantic:   cfg.Semantic,
		signature:  cfg.Signature,
		file:       cfg.File,
		cacheTTL:   cfg.CacheTTL,
		maxLatency: cfg.MaxLatency,
		log:        cfg.Logger,
	}

	cfg.Tracker.SetHitRatioSource(func() float64 {
		return cfg.Cache.Stats().HitRatio()
	})

	return o, nil
}

// Execute runs one query through the pipeline and returns the internal
// response shape. Every completed query, success or failure, updates
// the aggregate stats exactly once.
func (o *Orchestrator) Execute(ctx context.Context, q *types.Query) (*types.QueryResponse, error) {
	// Infer the type from the text when the caller left it to us,
	// without mutating the caller's query
	if q.Type == "" {
		inferred := *q
		inferred.Type = preprocessor.Classify(q.Text)
		q = &inferred
	}

	// Validation failures are terminal; no stats, no partial work
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	start := time.Now()
	o.tracker.EnterQuery()

	var cacheHit bool
	var failed bool
	defer func() {
		o.tracker.ExitQuery()
		elapsed := time.Since(start)
		o.tracker.RecordQuery(q.Type, elapsed, cacheHit, failed)
		if elapsed > o.maxLatency {
			o.log.Warn("query exceeded latency budget",
				zap.String("type", string(q.Type)),
				zap.Duration("elapsed", elapsed),
				zap.Duration("budget", o.maxLatency))
		}
	}()

	queryType := q.Type
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	// Normalization rewrites meaning-bearing prose. Signature and file
	// queries match literal text, so they keep theirs verbatim.
	text := strings.TrimSpace(q.Text)
	if queryType == types.QueryTypeSemantic || queryType == types.QueryTypeContextual {
		text = preprocessor.Normalize(q.Text)
		if q.Context != nil {
			text = preprocessor.EnhanceWithContext(text, q.Context)
		}
	}

	// The fingerprint covers the enhanced text so the same words from a
	// different editor context never share an entry
	key := cache.ComputeFingerprint(queryType, text, q.Options, maxResults, q.MinScore)
	if cached, ok := o.cache.Get(key); ok {
		cacheHit = true
		cached.QueryTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
		return cached, nil
	}

	req := processor.Request{
		Text:       text,
		Options:    q.Options,
		MaxResults: maxResults,
		MinScore:   q.MinScore,
	}
	if q.Context != nil {
		req.CurrentFile = q.Context.CurrentFile
	}

	resp, err := o.route(ctx, queryType, req)
	if err != nil {
		// Processor failures are recorded in stats and re-raised,
		// never silently swallowed
		failed = true
		o.log.Error("query processing failed",
			zap.String("type", string(queryType)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	resp.QueryTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
	o.cache.Set(key, resp, o.cacheTTL)

	return resp, nil
}

// route dispatches to the specialized processor for the query type.
// Contextual queries travel the semantic path with the context-boost
// option set; they have no ranking algorithm of their own.
func (o *Orchestrator) route(ctx context.Context, queryType types.QueryType, req processor.Request) (*types.QueryResponse, error) {
	switch queryType {
	case types.QueryTypeSemantic:
		return o.semantic.Process(ctx, req)
	case types.QueryTypeContextual:
		boosted := types.SemanticOptions{ContextBoost: true}
		if opts, ok := req.Options.(types.ContextualOptions); ok {
			boosted.Languages = opts.Languages
		}
		req.Options = boosted
		return o.semantic.Process(ctx, req)
	case types.QueryTypeSignature:
		return o.signature.Process(ctx, req)
	case types.QueryTypeFile:
		return o.file.Process(ctx, req)
	default:
		return nil, types.ErrUnknownQueryType
	}
}

// ExecuteProtocol runs a query and assembles the protocol payload for
// one page of results
func (o *Orchestrator) ExecuteProtocol(ctx context.Context, q *types.Query, requestID string, page, pageSize int) (*assembler.Response, error) {
	resp, err := o.Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	return o.assembler.Assemble(resp, q, requestID, page, pageSize), nil
}

// Stats returns the aggregate query statistics
func (o *Orchestrator) Stats() perf.QueryStats {
	return o.tracker.Stats()
}

// Alerts returns the tracker's recent alerts, oldest first
func (o *Orchestrator) Alerts() []perf.Alert {
	return o.tracker.RecentAlerts()
}

// CacheStats returns the cache counters
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.cache.Stats()
}

// Close releases the orchestrator-owned background resources
func (o *Orchestrator) Close() {
	o.cache.Close()
	o.tracker.Close()
}
