// Package http provides the HTTP inbound adapter for the aggregating proxy.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics exported by the proxy.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ToolCallsTotal   *prometheus.CounterVec
	ConnectedServers prometheus.Gauge
	CachedToolsTotal prometheus.Gauge
}

// NewMetrics creates and registers every metric with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpproxy",
				Name:      "requests_total",
				Help:      "Total number of inbound JSON-RPC requests processed",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mcpproxy",
				Name:      "request_duration_seconds",
				Help:      "Inbound request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ToolCallsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpproxy",
				Name:      "tool_calls_total",
				Help:      "Total tools/call dispatches, by downstream server and outcome",
			},
			[]string{"server", "outcome"},
		),
		ConnectedServers: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpproxy",
				Name:      "connected_servers",
				Help:      "Number of downstream servers with an open session",
			},
		),
		CachedToolsTotal: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpproxy",
				Name:      "cached_tools_total",
				Help:      "Total tools currently held across every server's catalog cache",
			},
		),
	}
}

// RecordToolCall implements dispatcher.ToolCallRecorder.
func (m *Metrics) RecordToolCall(server, outcome string) {
	m.ToolCallsTotal.WithLabelValues(server, outcome).Inc()
}

// SetConnectedServers implements session.ConnectionRecorder.
func (m *Metrics) SetConnectedServers(n int) {
	m.ConnectedServers.Set(float64(n))
}

// SetCachedTools implements catalog.CacheSizeRecorder.
func (m *Metrics) SetCachedTools(n int) {
	m.CachedToolsTotal.Set(float64(n))
}
