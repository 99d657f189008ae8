package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/astquery-mcp/internal/assembler"
	"github.com/dshills/astquery-mcp/internal/cache"
	"github.com/dshills/astquery-mcp/internal/fileproc"
	"github.com/dshills/astquery-mcp/internal/index"
	"github.com/dshills/astquery-mcp/internal/perf"
	"github.com/dshills/astquery-mcp/internal/processor"
	"github.com/dshills/astquery-mcp/internal/query"
)

const (
	// ServerName is the MCP server name
	ServerName = "astquery-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultIndexPath is the default location for the annotation index
	DefaultIndexPath = "~/.astquery/index.db"
)

// Options configures the served query pipeline
type Options struct {
	IndexPath string

	CacheCapacity  int
	CacheTTL       time.Duration
	SweepInterval  time.Duration
	Thresholds     perf.Thresholds
	FuzzyThreshold float64
	EmbeddingDim   int

	PageSize         int
	MaxContentLength int
	SnippetMode      assembler.SnippetMode

	Logger *zap.Logger
}

// Server wraps the MCP server with the query pipeline
type Server struct {
	mcp          *server.MCPServer
	index        *index.SQLiteIndex
	orchestrator *query.Orchestrator
	log          *zap.Logger
}

// NewPipeline opens the annotation index and assembles the full query
// pipeline. The caller owns both returned handles; closing the
// orchestrator does not close the index.
func NewPipeline(opts Options) (*query.Orchestrator, *index.SQLiteIndex, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = fileproc.DefaultFuzzyThreshold
	}
	if opts.Thresholds == (perf.Thresholds{}) {
		opts.Thresholds = perf.DefaultThresholds()
	}

	indexPath, err := expandIndexPath(opts.IndexPath)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	idx, err := index.Open(indexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open annotation index: %w", err)
	}

	var cacheOpts []cache.Option
	if opts.CacheCapacity > 0 {
		cacheOpts = append(cacheOpts, cache.WithCapacity(opts.CacheCapacity))
	}
	if opts.CacheTTL > 0 {
		cacheOpts = append(cacheOpts, cache.WithDefaultTTL(opts.CacheTTL))
	}
	if opts.SweepInterval > 0 {
		cacheOpts = append(cacheOpts, cache.WithSweepInterval(opts.SweepInterval))
	}
	respCache, err := cache.New(cacheOpts...)
	if err != nil {
		_ = idx.Close()
		return nil, nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	var asmOpts []assembler.Option
	if opts.PageSize > 0 {
		asmOpts = append(asmOpts, assembler.WithPageSize(opts.PageSize))
	}
	if opts.MaxContentLength > 0 {
		asmOpts = append(asmOpts, assembler.WithMaxContentLength(opts.MaxContentLength))
	}
	if opts.SnippetMode != "" {
		asmOpts = append(asmOpts, assembler.WithSnippetMode(opts.SnippetMode))
	}

	embedder := processor.NewHashEmbedder(opts.EmbeddingDim)
	orch, err := query.New(query.Config{
		Cache:      respCache,
		Tracker:    perf.NewTracker(opts.Thresholds, opts.Logger),
		Assembler:  assembler.New(asmOpts...),
		Semantic:   processor.NewSemantic(idx, embedder),
		Signature:  processor.NewSignature(idx),
		File:       fileproc.New(idx, opts.FuzzyThreshold, opts.Logger),
		CacheTTL:   opts.CacheTTL,
		MaxLatency: opts.Thresholds.SLALatency,
		Logger:     opts.Logger,
	})
	if err != nil {
		respCache.Close()
		_ = idx.Close()
		return nil, nil, fmt.Errorf("failed to build query pipeline: %w", err)
	}

	return orch, idx, nil
}

// NewServer assembles the query pipeline behind an MCP stdio server
func NewServer(opts Options) (*Server, error) {
	orch, idx, err := NewPipeline(opts)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		mcp:          server.NewMCPServer(ServerName, ServerVersion),
		index:        idx,
		orchestrator: orch,
		log:          opts.Logger,
	}
	s.registerTools()

	return s, nil
}

// Serve runs the MCP server on stdio and blocks until the transport
// closes
func (s *Server) Serve(ctx context.Context) error {
	defer s.Close()
	return server.ServeStdio(s.mcp)
}

// Close releases the pipeline and the index handle
func (s *Server) Close() {
	s.orchestrator.Close()
	if err := s.index.Close(); err != nil {
		s.log.Warn("failed to close index", zap.Error(err))
	}
}

func (s *Server) registerTools() {
	s.mcp.AddTool(assembler.SemanticQueryTool(), s.handleSemanticQuery)
	s.mcp.AddTool(assembler.SignatureQueryTool(), s.handleSignatureQuery)
	s.mcp.AddTool(assembler.FileQueryTool(), s.handleFileQuery)
	s.mcp.AddTool(queryStatsTool(), s.handleQueryStats)
}

// expandIndexPath resolves the default path and a leading ~ against the
// user's home directory
func expandIndexPath(p string) (string, error) {
	if p == "" {
		p = DefaultIndexPath
	}
	if len(p) > 1 && p[0] == '~' && p[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		p = filepath.Join(home, p[2:])
	}
	return p, nil
}
