// Package cmd provides the CLI commands for mcp-proxy.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mcp-proxy",
	Short: "mcp-proxy - MCP aggregating proxy",
	Long: `mcp-proxy aggregates tools and resources from several MCP servers
behind a single JSON-RPC endpoint.

Downstream servers are declared in a YAML config file as stdio, SSE, or
WebSocket connections. Tools are exposed as "<server>---<tool>" so callers
can target a specific server, and bare tool names still resolve by scanning
the catalog in config order.

Quick start:
  1. Create a config file: proxy.yaml
  2. Run: mcp-proxy run

Commands:
  run    Start the aggregating proxy
  list   Print the configured downstream servers`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "proxy.yaml", "config file")
}
