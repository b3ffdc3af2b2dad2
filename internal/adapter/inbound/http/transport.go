// Package http provides the HTTP inbound adapter for the aggregating proxy.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/distrihub/mcp-proxy/internal/proxy"
)

// HTTPTransport is the inbound adapter that serves the proxy's JSON-RPC
// methods, health check, metrics, and cache introspection over HTTP.
type HTTPTransport struct {
	proxy         *proxy.Proxy
	server        *http.Server
	addr          string
	logger        *slog.Logger
	registry      *prometheus.Registry
	metrics       *Metrics
	healthChecker *HealthChecker
}

// Option is a functional option for configuring HTTPTransport.
type Option func(*HTTPTransport)

// WithAddr sets the listen address for the HTTP server.
func WithAddr(addr string) Option {
	return func(t *HTTPTransport) { t.addr = addr }
}

// WithLogger sets the logger for the HTTP transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *HTTPTransport) { t.logger = logger }
}

// NewHTTPTransport creates an HTTP transport adapter wrapping the given
// proxy.
func NewHTTPTransport(p *proxy.Proxy, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		proxy:  p,
		addr:   "127.0.0.1:8080",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.healthChecker = NewHealthChecker(p.Catalog(), "")

	t.registry = prometheus.NewRegistry()
	t.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.metrics = NewMetrics(t.registry)

	// Wired before Initialize runs, so the startup probe's effect on the
	// session count and catalog size is reflected in the first scrape.
	p.SetMetrics(t.metrics)

	return t
}

// Start begins accepting HTTP connections. It blocks until ctx is
// cancelled or the server fails.
func (t *HTTPTransport) Start(ctx context.Context) error {
	handler := mcpHandler(t.proxy)
	handler = RequestIDMiddleware(t.logger)(handler)
	handler = MetricsMiddleware(t.metrics)(handler)

	mux := http.NewServeMux()
	mux.Handle("/healthz", t.healthChecker.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{Registry: t.registry}))
	mux.Handle("/debug/cache", debugCacheHandler(t.proxy.Catalog()))
	mux.Handle("/", handler)

	t.server = &http.Server{Addr: t.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		t.logger.Info("starting HTTP server", "addr", t.addr)
		err := t.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

func (t *HTTPTransport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}
	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *HTTPTransport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}
