package block

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "block_buffer"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// The latest committed block number.
	CommittedHeight metrics.Gauge `metrics_name:"latest_block_height"`
	// Number of transactions in the last ordered block.
	NumTxs metrics.Gauge

	// Blocks registered as ordered.
	OrderedBlocks metrics.Counter
	// Blocks whose execution result was recorded.
	ComputedBlocks metrics.Counter
	// Blocks committed.
	CommittedBlocks metrics.Counter

	// Transactions pushed to the ingestion queue.
	IngestedTxs metrics.Counter
	// Transactions waiting in the ingestion queue.
	QueuedTxs metrics.Gauge
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		CommittedHeight: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "latest_block_height",
			Help:      "The latest committed block number.",
		}, labels).With(labelsAndValues...),
		NumTxs: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "num_txs",
			Help:      "Number of transactions in the last ordered block.",
		}, labels).With(labelsAndValues...),
		OrderedBlocks: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "ordered_blocks_total",
			Help:      "Blocks registered as ordered.",
		}, labels).With(labelsAndValues...),
		ComputedBlocks: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "computed_blocks_total",
			Help:      "Blocks whose execution result was recorded.",
		}, labels).With(labelsAndValues...),
		CommittedBlocks: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "committed_blocks_total",
			Help:      "Blocks committed.",
		}, labels).With(labelsAndValues...),
		IngestedTxs: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "ingested_txs_total",
			Help:      "Transactions pushed to the ingestion queue.",
		}, labels).With(labelsAndValues...),
		QueuedTxs: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "queued_txs",
			Help:      "Transactions waiting in the ingestion queue.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		CommittedHeight: discard.NewGauge(),
		NumTxs:          discard.NewGauge(),
		OrderedBlocks:   discard.NewCounter(),
		ComputedBlocks:  discard.NewCounter(),
		CommittedBlocks: discard.NewCounter(),
		IngestedTxs:     discard.NewCounter(),
		QueuedTxs:       discard.NewGauge(),
	}
}
