// Package aggregator builds the merged tools/list and resources/list views
// served to clients from the per-server catalog cache.
package aggregator

import (
	"encoding/json"
	"log/slog"

	"github.com/distrihub/mcp-proxy/internal/catalog"
)

// Separator joins a server name and a tool name in the aggregated,
// client-facing tool identifier: "<server>---<tool>".
const Separator = "---"

// RenamedTool is a tool as it appears in the aggregated tools/list, with its
// name prefixed by the owning server.
type RenamedTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

type toolsListResult struct {
	Tools []RenamedTool `json:"tools"`
}

type resourcesListResult struct {
	Resources []catalog.Resource `json:"resources"`
}

// AggregateTools renames every cached tool to "<server>---<tool>",
// preserving each server's own tool order and visiting servers in their
// configured order -- it never sorts across servers. If the merged result
// cannot be serialized for some reason, it falls back to an empty but
// well-formed tools list rather than surfacing an error to the client.
func AggregateTools(cat *catalog.Catalog, logger *slog.Logger) json.RawMessage {
	if logger == nil {
		logger = slog.Default()
	}

	tools := []RenamedTool{}
	for _, server := range cat.Order() {
		for _, t := range cat.Tools(server) {
			tools = append(tools, RenamedTool{
				Name:        server + Separator + t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
			})
		}
	}

	raw, err := json.Marshal(toolsListResult{Tools: tools})
	if err != nil {
		logger.Warn("aggregator: failed to serialize tools/list, returning empty list", "error", err)
		raw, _ = json.Marshal(toolsListResult{Tools: []RenamedTool{}})
	}
	return raw
}

// AggregateResources merges every cached resource with no renaming, in
// configured server order. Like AggregateTools, it degrades to an empty
// list rather than an error on serialization failure.
func AggregateResources(cat *catalog.Catalog, logger *slog.Logger) json.RawMessage {
	if logger == nil {
		logger = slog.Default()
	}

	resources := []catalog.Resource{}
	for _, server := range cat.Order() {
		resources = append(resources, cat.Resources(server)...)
	}

	raw, err := json.Marshal(resourcesListResult{Resources: resources})
	if err != nil {
		logger.Warn("aggregator: failed to serialize resources/list, returning empty list", "error", err)
		raw, _ = json.Marshal(resourcesListResult{Resources: []catalog.Resource{}})
	}
	return raw
}
