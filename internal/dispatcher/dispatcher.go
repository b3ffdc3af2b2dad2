// Package dispatcher routes an aggregated tools/call request to the right
// downstream server, stripping the server prefix before forwarding, and
// turns every failure into a well-formed tool-call error response instead
// of a transport-level error.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/distrihub/mcp-proxy/internal/aggregator"
	"github.com/distrihub/mcp-proxy/internal/catalog"
	"github.com/distrihub/mcp-proxy/internal/config"
	"github.com/distrihub/mcp-proxy/internal/session"
)

// CallToolRequest is the aggregated tools/call payload a client sends.
type CallToolRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Meta      *RequestMeta    `json:"_meta,omitempty"`
}

// RequestMeta carries the per-call environment overlay a client may attach
// to a tools/call request, addressed to a Stdio-backed server.
type RequestMeta struct {
	EnvVars map[string]any `json:"env_vars,omitempty"`
}

// ContentItem is one piece of a tool call's result content.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResponse is the uniform shape returned for every tools/call,
// whether it succeeded downstream or failed anywhere along the way.
type CallToolResponse struct {
	IsError bool          `json:"is_error"`
	Content []ContentItem `json:"content"`
}

func errorResponse(format string, args ...any) CallToolResponse {
	return CallToolResponse{
		IsError: true,
		Content: []ContentItem{{Type: "text", Text: fmt.Sprintf(format, args...)}},
	}
}

type toolCallResult struct {
	IsError bool          `json:"is_error"`
	Content []ContentItem `json:"content"`
}

// ToolCallRecorder records the outcome of a forwarded tools/call, keyed by
// the downstream server name. Satisfied by the inbound HTTP adapter's
// metrics type.
type ToolCallRecorder interface {
	RecordToolCall(server, outcome string)
}

// Dispatcher forwards tools/call requests to the appropriate downstream.
type Dispatcher struct {
	cfg      *config.Config
	sessions *session.Manager
	cat      *catalog.Catalog
	logger   *slog.Logger
	metrics  ToolCallRecorder
}

// New builds a Dispatcher bound to the given configuration, session
// manager, and catalog cache.
func New(cfg *config.Config, sessions *session.Manager, cat *catalog.Catalog, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{cfg: cfg, sessions: sessions, cat: cat, logger: logger}
}

// SetMetrics wires a recorder that observes every forwarded call's outcome.
func (d *Dispatcher) SetMetrics(m ToolCallRecorder) {
	d.metrics = m
}

// HandleTool resolves req.Name to a downstream server and tool, forwards
// the call, and always returns a CallToolResponse -- routing failures,
// connection failures, and downstream errors are all folded into
// IsError:true responses rather than propagated as errors.
func (d *Dispatcher) HandleTool(ctx context.Context, req CallToolRequest) CallToolResponse {
	server, toolName, ok := splitPrefixed(req.Name)
	if ok {
		return d.dispatchToServer(ctx, server, toolName, req)
	}
	return d.dispatchByBareName(ctx, req)
}

// splitPrefixed reports whether name has the "<server>---<tool>" shape:
// splitting on the literal separator must yield exactly two non-empty
// parts. "a---b---c" and "---tool" and "server---" do not qualify, and
// fall through to the bare-name scan instead.
func splitPrefixed(name string) (server, tool string, ok bool) {
	parts := strings.Split(name, aggregator.Separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (d *Dispatcher) dispatchToServer(ctx context.Context, server, toolName string, req CallToolRequest) CallToolResponse {
	spec, ok := d.cfg.Servers[server]
	if !ok {
		return errorResponse("Specified server %s not found", server)
	}
	return d.forward(ctx, server, spec, toolName, req)
}

// dispatchByBareName scans the catalog in configuration order for the
// first server advertising a tool with this exact name.
func (d *Dispatcher) dispatchByBareName(ctx context.Context, req CallToolRequest) CallToolResponse {
	for _, server := range d.cat.Order() {
		for _, t := range d.cat.Tools(server) {
			if t.Name == req.Name {
				spec := d.cfg.Servers[server]
				return d.forward(ctx, server, spec, req.Name, req)
			}
		}
	}
	return errorResponse("Tool %s not found in any server", req.Name)
}

func (d *Dispatcher) forward(ctx context.Context, server string, spec config.ServerSpec, toolName string, req CallToolRequest) (resp CallToolResponse) {
	defer func() {
		if d.metrics == nil {
			return
		}
		outcome := "ok"
		if resp.IsError {
			outcome = "error"
		}
		d.metrics.RecordToolCall(server, outcome)
	}()

	overlay := extractEnvOverlay(req.Meta)

	client, err := d.sessions.GetOrCreate(ctx, server, spec, overlay)
	if err != nil {
		d.logger.Warn("dispatcher: could not connect to server", "server", server, "error", err)
		return errorResponse("Server %s is unavailable: %v", server, err)
	}

	params, err := json.Marshal(map[string]any{
		"name":      toolName,
		"arguments": req.Arguments,
	})
	if err != nil {
		return errorResponse("Failed to encode call to %s: %v", toolName, err)
	}

	callTimeout := time.Duration(d.cfg.Timeout.Call) * time.Second
	raw, err := client.Request(ctx, "tools/call", params, callTimeout)
	if err != nil {
		d.logger.Warn("dispatcher: downstream call failed", "server", server, "tool", toolName, "error", err)
		return errorResponse("Call to %s on %s failed: %v", toolName, server, err)
	}

	var result toolCallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return errorResponse("Malformed response from %s for %s: %v", server, toolName, err)
	}
	return CallToolResponse{IsError: result.IsError, Content: result.Content}
}

// extractEnvOverlay keeps only the string-valued entries of meta.EnvVars,
// matching the env overlay this proxy's environment-overlay contract
// allows: a per-call env var value that isn't a string is dropped rather
// than coerced.
func extractEnvOverlay(meta *RequestMeta) map[string]string {
	if meta == nil || len(meta.EnvVars) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta.EnvVars))
	for k, v := range meta.EnvVars {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
