package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/distrihub/mcp-proxy/internal/catalog"
)

// HealthResponse is the JSON response from the /healthz endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

// HealthChecker reports on the catalog cache's view of each configured
// server.
type HealthChecker struct {
	catalog *catalog.Catalog
	version string
}

// NewHealthChecker builds a HealthChecker backed by the given catalog.
func NewHealthChecker(cat *catalog.Catalog, version string) *HealthChecker {
	return &HealthChecker{catalog: cat, version: version}
}

// Check reports every configured server's probe outcome. A server probed
// with zero tools and zero resources is flagged degraded -- this never
// fails the whole process, since an unreachable downstream is expected,
// recoverable behavior, not a proxy fault.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)

	for _, server := range h.catalog.Order() {
		tools := h.catalog.Tools(server)
		resources := h.catalog.Resources(server)
		if len(tools) == 0 && len(resources) == 0 {
			checks[server] = "degraded: no tools or resources discovered"
		} else {
			checks[server] = fmt.Sprintf("ok: %d tools, %d resources", len(tools), len(resources))
		}
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	return HealthResponse{
		Status:  "healthy",
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an HTTP handler for the health endpoint. It always
// reports 200: per-server degradation is visible in the body, not the
// status code, since the proxy remains usable even when some downstreams
// are unreachable.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(health)
	})
}
