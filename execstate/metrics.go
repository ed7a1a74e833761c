package execstate

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "execstate"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Executed watermark.
	ExecutedHeight metrics.Gauge
	// Committed watermark.
	CommittedHeight metrics.Gauge
	// Transactions rejected by the per-block gas cap.
	GasCapRejections metrics.Counter
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
		ExecutedHeight: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "executed_height",
			Help:      "Latest executed block number.",
		}, labels).With(labelsAndValues...),
		CommittedHeight: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "committed_height",
			Help:      "Latest committed block number.",
		}, labels).With(labelsAndValues...),
		GasCapRejections: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "gas_cap_rejections_total",
			Help:      "Transactions rejected by the per-block gas cap.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		ExecutedHeight:   discard.NewGauge(),
		CommittedHeight:  discard.NewGauge(),
		GasCapRejections: discard.NewCounter(),
	}
}
