// Package proxy wires the session manager, catalog cache, and dispatcher
// into the three JSON-RPC methods the aggregating proxy serves.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/distrihub/mcp-proxy/internal/aggregator"
	"github.com/distrihub/mcp-proxy/internal/catalog"
	"github.com/distrihub/mcp-proxy/internal/config"
	"github.com/distrihub/mcp-proxy/internal/dispatcher"
	"github.com/distrihub/mcp-proxy/internal/session"
)

// Standard JSON-RPC 2.0 error codes used by Handle.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
)

// RPCError is a JSON-RPC 2.0 protocol-level error -- as opposed to a tool
// call failure, which is folded into a successful result per
// dispatcher.CallToolResponse.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Proxy serves the aggregated resources/list, tools/list, and tools/call
// methods over whatever inbound transport calls Handle.
type Proxy struct {
	cfg        *config.Config
	sessions   *session.Manager
	catalog    *catalog.Catalog
	dispatcher *dispatcher.Dispatcher
	logger     *slog.Logger
}

// New builds a Proxy from a loaded, validated configuration.
func New(cfg *config.Config, logger *slog.Logger) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	sessions := session.New(logger)
	cat := catalog.New(logger)
	disp := dispatcher.New(cfg, sessions, cat, logger)
	return &Proxy{
		cfg:        cfg,
		sessions:   sessions,
		catalog:    cat,
		dispatcher: disp,
		logger:     logger,
	}
}

// Initialize runs the startup probe, populating the catalog cache before
// the proxy accepts traffic.
func (p *Proxy) Initialize(ctx context.Context) error {
	return p.catalog.InitCaches(ctx, p.cfg, p.sessions)
}

// Catalog exposes the live cache for introspection endpoints.
func (p *Proxy) Catalog() *catalog.Catalog {
	return p.catalog
}

// Metrics is satisfied by the inbound HTTP adapter's metrics type. It is
// declared here, as the union of the dispatcher/session/catalog recorder
// interfaces, rather than imported directly from that adapter package --
// the adapter imports proxy, so importing it back would cycle.
type Metrics interface {
	dispatcher.ToolCallRecorder
	session.ConnectionRecorder
	catalog.CacheSizeRecorder
}

// SetMetrics wires m into the dispatcher, session manager, and catalog
// cache so their activity is observable from outside the proxy. Call this
// before Initialize so the startup probe's effects are captured too.
func (p *Proxy) SetMetrics(m Metrics) {
	p.dispatcher.SetMetrics(m)
	p.sessions.SetMetrics(m)
	p.catalog.SetMetrics(m)
}

// Close tears down every downstream session.
func (p *Proxy) Close() error {
	return p.sessions.Close()
}

// Handle dispatches one JSON-RPC method call and returns its raw JSON
// result. Only resources/list, tools/list, and tools/call are recognized;
// anything else is a protocol-level MethodNotFound, since this proxy does
// not forward arbitrary methods to downstreams.
func (p *Proxy) Handle(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, *RPCError) {
	switch method {
	case "resources/list":
		return aggregator.AggregateResources(p.catalog, p.logger), nil

	case "tools/list":
		return aggregator.AggregateTools(p.catalog, p.logger), nil

	case "tools/call":
		var req dispatcher.CallToolRequest
		if len(params) > 0 {
			if err := json.Unmarshal(params, &req); err != nil {
				return nil, &RPCError{Code: CodeInvalidParams, Message: "invalid tools/call params: " + err.Error()}
			}
		}
		resp := p.dispatcher.HandleTool(ctx, req)
		raw, err := json.Marshal(resp)
		if err != nil {
			p.logger.Error("proxy: failed to serialize tools/call response", "error", err)
			raw, _ = json.Marshal(dispatcher.CallToolResponse{
				IsError: true,
				Content: []dispatcher.ContentItem{{Type: "text", Text: "internal error serializing response"}},
			})
		}
		return raw, nil

	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", method)}
	}
}
