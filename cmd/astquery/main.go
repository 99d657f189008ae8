package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/astquery-mcp/internal/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	cfgPath   string
	indexPath string
)

var rootCmd = &cobra.Command{
	Use:          "astquery",
	Short:        "MCP server answering code-intelligence queries over an annotation index",
	SilenceUsage: true,
	Long: `astquery serves semantic, signature, and file lookups over a prebuilt
AST annotation index through the Model Context Protocol.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.astquery/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&indexPath, "index", "", "annotation index database (default ~/.astquery/index.db)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves flags over environment over file
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if indexPath != "" {
		cfg.IndexPath = indexPath
	}
	return cfg, nil
}

// newLogger builds a stderr logger; stdout stays free for protocol
// traffic
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}
