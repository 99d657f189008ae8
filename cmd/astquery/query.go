package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/astquery-mcp/internal/mcp"
	"github.com/dshills/astquery-mcp/pkg/types"
)

// oneShotBudget bounds a CLI query; the server SLA does not apply here
const oneShotBudget = 500 * time.Millisecond

var (
	queryType  string
	maxResults int
	minScore   float64
	exactMatch bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run a single query against the index and print the results",
	Long: `Run one query without starting the MCP server. The type is inferred
from the text unless --type is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryType, "type", "t", "", "query type: semantic, signature, file, contextual (default inferred)")
	queryCmd.Flags().IntVarP(&maxResults, "max-results", "n", 10, "maximum number of results")
	queryCmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum relevance score (0-1)")
	queryCmd.Flags().BoolVar(&exactMatch, "exact", true, "require exact signature matches (signature queries)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger("error")
	if err != nil {
		return err
	}

	opts := serverOptions(cfg, log)
	orch, idx, err := mcp.NewPipeline(opts)
	if err != nil {
		return err
	}
	defer func() {
		orch.Close()
		_ = idx.Close()
	}()

	q := &types.Query{
		Type:       types.QueryType(queryType),
		Text:       args[0],
		MaxResults: maxResults,
		MinScore:   minScore,
	}
	if q.Type == types.QueryTypeSignature {
		q.Options = types.SignatureOptions{ExactMatch: exactMatch}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), oneShotBudget)
	defer cancel()

	start := time.Now()
	resp, err := orch.Execute(ctx, q)
	if err != nil {
		return err
	}

	printResults(resp, time.Since(start))
	return nil
}

func printResults(resp *types.QueryResponse, elapsed time.Duration) {
	header := color.New(color.Bold)
	scoreCol := color.New(color.FgGreen)
	pathCol := color.New(color.FgCyan)
	dimCol := color.New(color.Faint)

	header.Printf("%d result(s)", resp.TotalMatches)
	dimCol.Printf("  strategy=%s  %s\n\n", resp.SearchStrategy, elapsed.Round(time.Millisecond))

	for i, m := range resp.Results {
		scoreCol.Printf("%2d. %.2f  ", i+1, m.Score)
		pathCol.Printf("%s:%d\n", m.Annotation.FilePath, m.Annotation.LineNumber)
		if m.Annotation.Signature != "" {
			fmt.Printf("    %s\n", m.Annotation.Signature)
		}
		if m.Annotation.Summary != "" {
			dimCol.Printf("    %s\n", m.Annotation.Summary)
		}
		dimCol.Printf("    %s\n", m.MatchReason)
	}
}
