package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/astquery-mcp/internal/assembler"
	"github.com/dshills/astquery-mcp/internal/config"
	"github.com/dshills/astquery-mcp/internal/mcp"
	"github.com/dshills/astquery-mcp/internal/perf"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP queries on stdio",
	Long: `Start the MCP server on stdin/stdout. All logging goes to stderr;
stdout carries only protocol traffic.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting server",
		zap.String("version", version),
		zap.String("index", cfg.IndexPath))

	srv, err := mcp.NewServer(serverOptions(cfg, log))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Info("server ready, listening on stdio")
		errChan <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	log.Info("server stopped")
	return nil
}

// serverOptions maps the file configuration onto the pipeline options
func serverOptions(cfg *config.Config, log *zap.Logger) mcp.Options {
	return mcp.Options{
		IndexPath:     cfg.IndexPath,
		CacheCapacity: cfg.Cache.Capacity,
		CacheTTL:      cfg.Cache.TTL,
		SweepInterval: cfg.Cache.SweepInterval,
		Thresholds: perf.Thresholds{
			WarnLatency:  time.Duration(cfg.Perf.WarnLatencyMs) * time.Millisecond,
			SLALatency:   time.Duration(cfg.Perf.SLALatencyMs) * time.Millisecond,
			HitRatio:     cfg.Perf.HitRatioFloor,
			MemoryBytes:  uint64(cfg.Perf.MemoryLimitMB) * 1024 * 1024,
			CollectEvery: cfg.Perf.CollectInterval,
		},
		FuzzyThreshold:   cfg.Query.FuzzyThreshold,
		EmbeddingDim:     cfg.Query.EmbeddingDim,
		PageSize:         cfg.Query.PageSize,
		MaxContentLength: cfg.Query.MaxContentLength,
		SnippetMode:      assembler.SnippetMode(cfg.Query.SnippetMode),
		Logger:           log,
	}
}
