package node

import (
	"time"

	"github.com/rollkit/bridge/block"
	"github.com/rollkit/bridge/execstate"
	"github.com/rollkit/bridge/mempool"
	"github.com/rollkit/bridge/persist"
	"github.com/rollkit/bridge/pkg/config"
	"github.com/rollkit/bridge/pkg/p2p"
)

const readHeaderTimeout = 10 * time.Second

// Metrics groups the metrics of every component wired by the node.
type Metrics struct {
	Block     *block.Metrics
	Mempool   *mempool.Metrics
	ExecState *execstate.Metrics
	Persist   *persist.Metrics
	P2P       *p2p.Metrics
}

// MetricsProvider returns the component metrics labelled with chainID.
type MetricsProvider func(chainID string) *Metrics

// DefaultMetricsProvider returns Metrics build using Prometheus client library
// if Prometheus is enabled. Otherwise, it returns no-op Metrics.
func DefaultMetricsProvider(cfg *config.InstrumentationConfig) MetricsProvider {
	return func(chainID string) *Metrics {
		if cfg != nil && cfg.Prometheus {
			return &Metrics{
				Block:     block.PrometheusMetrics(cfg.Namespace, "chain_id", chainID),
				Mempool:   mempool.PrometheusMetrics(cfg.Namespace, "chain_id", chainID),
				ExecState: execstate.PrometheusMetrics(cfg.Namespace, "chain_id", chainID),
				Persist:   persist.PrometheusMetrics(cfg.Namespace, "chain_id", chainID),
				P2P:       p2p.PrometheusMetrics(cfg.Namespace, "chain_id", chainID),
			}
		}
		return NopMetrics()
	}
}

// NopMetrics returns no-op metrics for every component.
func NopMetrics() *Metrics {
	return &Metrics{
		Block:     block.NopMetrics(),
		Mempool:   mempool.NopMetrics(),
		ExecState: execstate.NopMetrics(),
		Persist:   persist.NopMetrics(),
		P2P:       p2p.NopMetrics(),
	}
}
