// Package metrics defines the Prometheus collectors exported by the search
// engine and an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "searchcore"

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	DocsIndexedTotal    *prometheus.CounterVec
	DocsRemovedTotal    *prometheus.CounterVec
	DocumentCount       prometheus.Gauge
	IndexBatchesTotal   *prometheus.CounterVec
	SearchQueriesTotal  *prometheus.CounterVec
	OperationLatency    *prometheus.HistogramVec
	SearchResultsCount  prometheus.Histogram
	FacetDuration       *prometheus.HistogramVec
	SpellingTotal       *prometheus.CounterVec
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	CircuitBreakerState *prometheus.GaugeVec
	SnapshotsTotal      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which lets several engines live in one process.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "docs_indexed_total",
				Help:      "Total documents added or replaced, by model.",
			},
			[]string{"model"},
		),
		DocsRemovedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "docs_removed_total",
				Help:      "Total documents removed, by model.",
			},
			[]string{"model"},
		),
		DocumentCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "document_count",
				Help:      "Number of documents currently in the index.",
			},
		),
		IndexBatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_batches_total",
				Help:      "Total write batches by status (ok, error).",
			},
			[]string{"status"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_queries_total",
				Help:      "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		OperationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_latency_seconds",
				Help:      "Engine operation latency in seconds.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"operation"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results_count",
				Help:      "Number of matching documents per search.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 1000},
			},
		),
		FacetDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "facet_duration_seconds",
				Help:      "Facet computation time by kind (field, date, query).",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"kind"},
		),
		SpellingTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "spelling_suggestions_total",
				Help:      "Spelling lookups by outcome (corrected, unchanged, none).",
			},
			[]string{"outcome"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of result cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		SnapshotsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_total",
				Help:      "Snapshot writes and loads by operation and status.",
			},
			[]string{"operation", "status"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.collectors()...)
	}
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.DocsIndexedTotal,
		m.DocsRemovedTotal,
		m.DocumentCount,
		m.IndexBatchesTotal,
		m.SearchQueriesTotal,
		m.OperationLatency,
		m.SearchResultsCount,
		m.FacetDuration,
		m.SpellingTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
		m.SnapshotsTotal,
	}
}

// Handler returns the Prometheus scrape HTTP handler for the default
// registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a scrape handler for a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
