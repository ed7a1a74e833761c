package persist

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "persist"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Commit time
	CommitTime metrics.Histogram
	// Blocks committed.
	CommittedBlocks metrics.Counter
	// Failed commit requests.
	CommitFailures metrics.Counter
	// Epoch change proofs sent.
	EpochChanges metrics.Counter
	// Epoch change proofs that could not be sent.
	EpochChangeFailures metrics.Counter
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
		CommitTime: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "commit_time_seconds",
			Help:      "Time spent committing a request.",
		}, labels).With(labelsAndValues...),
		CommittedBlocks: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "committed_blocks_total",
			Help:      "Blocks committed.",
		}, labels).With(labelsAndValues...),
		CommitFailures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "commit_failures_total",
			Help:      "Failed commit requests.",
		}, labels).With(labelsAndValues...),
		EpochChanges: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "epoch_changes_total",
			Help:      "Epoch change proofs sent.",
		}, labels).With(labelsAndValues...),
		EpochChangeFailures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "epoch_change_failures_total",
			Help:      "Epoch change proofs that could not be sent.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		CommitTime:          discard.NewHistogram(),
		CommittedBlocks:     discard.NewCounter(),
		CommitFailures:      discard.NewCounter(),
		EpochChanges:        discard.NewCounter(),
		EpochChangeFailures: discard.NewCounter(),
	}
}
