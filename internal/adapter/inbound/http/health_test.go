package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/distrihub/mcp-proxy/internal/catalog"
)

func TestHealthChecker_AllServersHealthy(t *testing.T) {
	cat := catalog.New(nil)
	cat.SeedForTest([]string{"math"}, map[string][]catalog.Tool{
		"math": {{Name: "add"}},
	}, nil)

	hc := NewHealthChecker(cat, "test-version")
	health := hc.Check()

	if health.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", health.Status)
	}
	if health.Version != "test-version" {
		t.Errorf("Version = %q, want test-version", health.Version)
	}
	if health.Checks["math"] == "" || health.Checks["math"][:2] != "ok" {
		t.Errorf("math check = %q, want an ok-prefixed string", health.Checks["math"])
	}
}

func TestHealthChecker_DegradedServerStillReportsHealthyOverall(t *testing.T) {
	cat := catalog.New(nil)
	cat.SeedForTest([]string{"broken"}, nil, nil)

	hc := NewHealthChecker(cat, "")
	health := hc.Check()

	if health.Status != "healthy" {
		t.Errorf("Status = %q, want healthy even with a degraded server", health.Status)
	}
	if health.Checks["broken"][:8] != "degraded" {
		t.Errorf("broken check = %q, want a degraded-prefixed string", health.Checks["broken"])
	}
}

func TestHealthChecker_Handler_HTTP(t *testing.T) {
	cat := catalog.New(nil)
	cat.SeedForTest([]string{"math"}, map[string][]catalog.Tool{"math": {{Name: "add"}}}, nil)
	hc := NewHealthChecker(cat, "1.0.0")

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	hc.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Response status = %q, want healthy", resp.Status)
	}
	if resp.Version != "1.0.0" {
		t.Errorf("Response version = %q, want 1.0.0", resp.Version)
	}
}

func TestHealthChecker_GoroutineCount(t *testing.T) {
	hc := NewHealthChecker(catalog.New(nil), "")
	health := hc.Check()

	if health.Checks["goroutines"] == "" {
		t.Error("goroutines check should be present")
	}
	if health.Checks["goroutines"] == "0" {
		t.Error("goroutines count should be > 0")
	}
}
