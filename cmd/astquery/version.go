package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/astquery-mcp/internal/index"
	"github.com/dshills/astquery-mcp/internal/mcp"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s %s\n", mcp.ServerName, version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", index.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", index.DriverName)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
