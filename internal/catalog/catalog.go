// Package catalog holds the aggregated view of every downstream server's
// tools and resources, populated by a one-time parallel startup probe.
package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/distrihub/mcp-proxy/internal/config"
	"github.com/distrihub/mcp-proxy/internal/session"
)

// Tool is a single tool descriptor as reported by a downstream server's
// tools/list.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Resource is a single resource descriptor as reported by a downstream
// server's resources/list.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

type resourcesListResult struct {
	Resources []Resource `json:"resources"`
}

// CacheSizeRecorder observes the total number of tools held across every
// server's cache after a probe completes. Satisfied by the inbound HTTP
// adapter's metrics type.
type CacheSizeRecorder interface {
	SetCachedTools(n int)
}

// Catalog holds, per server, the tools and resources last discovered by the
// startup probe. Both maps are keyed by server name and hold the servers in
// configuration order when iterated via Order.
type Catalog struct {
	logger  *slog.Logger
	metrics CacheSizeRecorder

	mu        sync.RWMutex
	order     []string
	tools     map[string][]Tool
	resources map[string][]Resource
}

// New returns an empty Catalog. Call InitCaches to populate it.
func New(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		logger:    logger,
		tools:     make(map[string][]Tool),
		resources: make(map[string][]Resource),
	}
}

// SeedForTest populates the cache directly, bypassing InitCaches. It exists
// so other packages' tests can exercise a Catalog's read side without
// spinning up real downstream processes.
func (c *Catalog) SeedForTest(order []string, tools map[string][]Tool, resources map[string][]Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = order
	if tools == nil {
		tools = make(map[string][]Tool)
	}
	if resources == nil {
		resources = make(map[string][]Resource)
	}
	c.tools = tools
	c.resources = resources
}

// SetMetrics wires a recorder that observes the cache's total tool count.
func (c *Catalog) SetMetrics(r CacheSizeRecorder) {
	c.metrics = r
}

// Order returns the configured server names in declaration order.
func (c *Catalog) Order() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Tools returns the cached tool list for a server, or nil if the server is
// unknown or its probe failed.
func (c *Catalog) Tools(server string) []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tools[server]
}

// Resources returns the cached resource list for a server, or nil if the
// server is unknown or its probe failed.
func (c *Catalog) Resources(server string) []Resource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resources[server]
}

// Snapshot returns the full cache as a plain map suitable for JSON
// serialization, for introspection endpoints.
func (c *Catalog) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]any, len(c.order))
	for _, name := range c.order {
		out[name] = map[string]any{
			"tools":     c.tools[name],
			"resources": c.resources[name],
		}
	}
	return out
}

// InitCaches runs the startup probe: for every configured server, it
// fans out concurrent tools/list and resources/list calls (bounded by
// cfg.Timeout.List), and joins before returning. A server whose client
// cannot be created, or whose list call fails or returns malformed JSON,
// contributes an empty list for that kind rather than aborting the probe --
// one misbehaving downstream must never keep the proxy from serving the
// rest.
func (c *Catalog) InitCaches(ctx context.Context, cfg *config.Config, sessions *session.Manager) error {
	listTimeout := time.Duration(cfg.Timeout.List) * time.Second

	tools := make(map[string][]Tool, len(cfg.ServerOrder))
	resources := make(map[string][]Resource, len(cfg.ServerOrder))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range cfg.ServerOrder {
		name := name
		spec := cfg.Servers[name]

		wg.Add(2)
		go func() {
			defer wg.Done()
			ts := c.probeTools(ctx, name, spec, sessions, listTimeout)
			mu.Lock()
			tools[name] = ts
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			rs := c.probeResources(ctx, name, spec, sessions, listTimeout)
			mu.Lock()
			resources[name] = rs
			mu.Unlock()
		}()
	}
	wg.Wait()

	c.mu.Lock()
	c.order = append([]string(nil), cfg.ServerOrder...)
	c.tools = tools
	c.resources = resources
	c.mu.Unlock()

	if c.metrics != nil {
		total := 0
		for _, ts := range tools {
			total += len(ts)
		}
		c.metrics.SetCachedTools(total)
	}

	return nil
}

func (c *Catalog) probeTools(ctx context.Context, name string, spec config.ServerSpec, sessions *session.Manager, timeout time.Duration) []Tool {
	client, err := sessions.GetOrCreate(ctx, name, spec, nil)
	if err != nil {
		c.logger.Warn("catalog probe: could not connect", "server", name, "error", err)
		return nil
	}

	raw, err := client.Request(ctx, "tools/list", nil, timeout)
	if err != nil {
		c.logger.Warn("catalog probe: tools/list failed", "server", name, "error", err)
		return nil
	}

	var res toolsListResult
	if err := json.Unmarshal(raw, &res); err != nil {
		c.logger.Warn("catalog probe: malformed tools/list response", "server", name, "error", err)
		return nil
	}
	return res.Tools
}

func (c *Catalog) probeResources(ctx context.Context, name string, spec config.ServerSpec, sessions *session.Manager, timeout time.Duration) []Resource {
	client, err := sessions.GetOrCreate(ctx, name, spec, nil)
	if err != nil {
		c.logger.Warn("catalog probe: could not connect", "server", name, "error", err)
		return nil
	}

	raw, err := client.Request(ctx, "resources/list", nil, timeout)
	if err != nil {
		c.logger.Warn("catalog probe: resources/list failed", "server", name, "error", err)
		return nil
	}

	var res resourcesListResult
	if err := json.Unmarshal(raw, &res); err != nil {
		c.logger.Warn("catalog probe: malformed resources/list response", "server", name, "error", err)
		return nil
	}
	return res.Resources
}
