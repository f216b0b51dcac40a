// Package prometheus records core service measurements as Prometheus
// collectors and serves them over HTTP.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.Metrics = (*Metrics)(nil)

const namespace = "docqa"

// Metrics holds the collectors. Each instance owns its registry so tests
// and multiple servers never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	ingests   *prometheus.CounterVec
	rebuilds  *prometheus.CounterVec
	queries   *prometheus.CounterVec
	embedding prometheus.Histogram
}

// New creates the collectors on a fresh registry, together with the
// standard Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ingests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingests_total",
				Help:      "Documents ingested, by outcome.",
			},
			[]string{"status"}, // indexed, skipped
		),
		rebuilds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_rebuilds_total",
				Help:      "Full vector index rebuilds, by trigger.",
			},
			[]string{"trigger"}, // add, query, ledger, repair
		),
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Questions answered, by grounding.",
			},
			[]string{"grounding"}, // grounded, ungrounded
		),
		embedding: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "embedding_batch_duration_seconds",
				Help:      "Latency of one embedding batch request.",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// IngestCompleted counts a finished ingest by outcome.
func (m *Metrics) IngestCompleted(status domain.IngestStatus) {
	m.ingests.WithLabelValues(string(status)).Inc()
}

// Rebuilt counts a full index rebuild.
func (m *Metrics) Rebuilt(trigger string) {
	m.rebuilds.WithLabelValues(trigger).Inc()
}

// QueryServed counts an answered question.
func (m *Metrics) QueryServed(grounding domain.Grounding) {
	m.queries.WithLabelValues(grounding.String()).Inc()
}

// ObserveEmbedding records one embedding batch latency.
func (m *Metrics) ObserveEmbedding(d time.Duration) {
	m.embedding.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
