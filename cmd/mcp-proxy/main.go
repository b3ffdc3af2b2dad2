// Command mcp-proxy aggregates tools and resources from several MCP servers
// behind a single JSON-RPC endpoint.
package main

import "github.com/distrihub/mcp-proxy/cmd/mcp-proxy/cmd"

func main() {
	cmd.Execute()
}
