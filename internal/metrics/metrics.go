// Package metrics exposes run counters for the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "triarb"

// Metrics holds the collectors of one command run on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	PoolQueries      prometheus.Counter
	PoolsExcluded    *prometheus.CounterVec
	RoutesRejected   *prometheus.CounterVec
	RoutesAccepted   prometheus.Counter
	PoolsDiscovered  prometheus.Gauge
	RoutesDiscovered prometheus.Gauge
	BestProfitRatio  prometheus.Gauge
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PoolQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_queries_total",
			Help:      "Factory getPool queries sent during discovery.",
		}),
		PoolsExcluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pools_excluded_total",
			Help:      "Pools dropped before evaluation, by reason.",
		}, []string{"reason"}),
		RoutesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_rejected_total",
			Help:      "Routes rejected during evaluation, by reason.",
		}, []string{"reason"}),
		RoutesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_accepted_total",
			Help:      "Routes whose round trip beat the profit threshold.",
		}),
		PoolsDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pools_discovered",
			Help:      "Pools found by the last discovery run.",
		}),
		RoutesDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "routes_discovered",
			Help:      "Routes persisted by the last discovery run.",
		}),
		BestProfitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_profit_ratio",
			Help:      "Profit of the best accepted route divided by the test amount.",
		}),
	}

	m.Registry.MustRegister(
		m.PoolQueries,
		m.PoolsExcluded,
		m.RoutesRejected,
		m.RoutesAccepted,
		m.PoolsDiscovered,
		m.RoutesDiscovered,
		m.BestProfitRatio,
	)
	return m
}

// WriteTextfile writes the registry in Prometheus text format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
