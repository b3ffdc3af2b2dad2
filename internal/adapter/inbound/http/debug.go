package http

import (
	"encoding/json"
	"net/http"

	"github.com/distrihub/mcp-proxy/internal/catalog"
)

// debugCacheHandler serves the full catalog cache as JSON, for operators
// inspecting what the startup probe actually discovered per server.
func debugCacheHandler(cat *catalog.Catalog) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(cat.Snapshot())
	})
}
