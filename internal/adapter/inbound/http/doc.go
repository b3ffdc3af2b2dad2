// Package http provides the HTTP inbound adapter for the MCP aggregating
// proxy.
//
// # Usage
//
// Create and start an HTTP transport wrapping a *proxy.Proxy:
//
//	transport := http.NewHTTPTransport(p,
//	    http.WithAddr(":8080"),
//	    http.WithLogger(logger),
//	)
//	err := transport.Start(ctx)
//
// # Endpoints
//
//	POST /         - Send a JSON-RPC 2.0 request (resources/list, tools/list, tools/call)
//	OPTIONS /      - CORS preflight handling
//	GET /healthz   - Per-server catalog health
//	GET /metrics   - Prometheus metrics
//	GET /debug/cache - Full catalog cache snapshot, for operator inspection
//
// # Request/response shape
//
// Every POST body must be a single JSON-RPC 2.0 request object. A request
// without an "id" field is treated as a notification: the proxy still
// processes it, but responds with 202 Accepted and no body, per JSON-RPC
// semantics. All other requests receive a JSON-RPC response or error
// object with HTTP status 200 -- JSON-RPC errors are carried in the body,
// not the HTTP status line.
package http
