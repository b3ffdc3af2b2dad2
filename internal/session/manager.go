// Package session manages one long-lived downstream rpcclient.Client per
// configured server, created lazily on first use.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/distrihub/mcp-proxy/internal/config"
	"github.com/distrihub/mcp-proxy/internal/rpcclient"
	"github.com/distrihub/mcp-proxy/internal/transport"
)

// ConnectionRecorder observes the number of downstream servers that
// currently have an open session. Satisfied by the inbound HTTP adapter's
// metrics type.
type ConnectionRecorder interface {
	SetConnectedServers(n int)
}

// Manager holds at most one rpcclient.Client per server name. It never
// reconnects on its own: once a client is created, it is handed out as-is
// until the process exits, even if the underlying transport later fails.
type Manager struct {
	logger  *slog.Logger
	metrics ConnectionRecorder

	mu      sync.Mutex
	clients map[string]*rpcclient.Client
}

// New returns an empty Manager.
func New(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:  logger,
		clients: make(map[string]*rpcclient.Client),
	}
}

// SetMetrics wires a recorder that observes the live session count.
func (m *Manager) SetMetrics(r ConnectionRecorder) {
	m.metrics = r
}

// GetOrCreate returns the existing client for serverName if one was already
// created, or constructs and opens a new one from spec.
//
// envOverlay is only consulted the first time a given server name is
// created: it is folded into the Stdio transport's environment at
// construction, replacing the default env wholesale rather than merging
// into it key-by-key. Once a client exists for a server, later calls with a
// different (or absent) overlay are silently ignored -- the existing
// connection is reused as-is. This mirrors the downstream-reuse behavior of
// the system this proxy was modeled on: a connection, once established, is
// not torn down and rebuilt just because a later call asked for different
// per-call environment.
func (m *Manager) GetOrCreate(ctx context.Context, serverName string, spec config.ServerSpec, envOverlay map[string]string) (*rpcclient.Client, error) {
	m.mu.Lock()
	if c, ok := m.clients[serverName]; ok {
		m.mu.Unlock()
		return c, nil
	}

	t, err := newTransport(spec, envOverlay)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", serverName, err)
	}

	if err := t.Open(ctx); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", serverName, err)
	}

	c := rpcclient.New(t, m.logger.With("server", serverName))
	c.Start()
	m.clients[serverName] = c
	count := len(m.clients)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetConnectedServers(count)
	}

	m.logger.Info("session created", "server", serverName, "type", spec.Type)
	return c, nil
}

// Close tears down every created client. Used on process shutdown.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, c := range m.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing session %s: %w", name, err)
		}
	}
	if m.metrics != nil {
		m.metrics.SetConnectedServers(0)
	}
	return firstErr
}

func newTransport(spec config.ServerSpec, envOverlay map[string]string) (transport.Transport, error) {
	switch spec.Type {
	case config.KindStdio:
		env := spec.EnvVars
		if len(envOverlay) > 0 {
			env = envOverlay
		}
		return &transport.Stdio{
			Command: spec.Command,
			Args:    spec.Args,
			Env:     env,
		}, nil
	case config.KindSSE:
		return &transport.SSE{
			URL:     spec.URL,
			Headers: spec.Headers,
		}, nil
	case config.KindWS:
		return &transport.WS{
			URL:     spec.URL,
			Headers: spec.Headers,
		}, nil
	default:
		return nil, fmt.Errorf("unknown server type %q", spec.Type)
	}
}
