package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "covid_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the refresh
// pipeline, the source loader, and the dashboard views.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Refresh lifecycle.
	Refreshes        *prometheus.CounterVec // labels: outcome={success,error}
	RefreshDuration  prometheus.Histogram
	SnapshotRows     *prometheus.GaugeVec // labels: dataset={cases,vaccinations,lookup}
	SnapshotLoadedAt prometheus.Gauge

	// Source feeds.
	SourceFetches       *prometheus.CounterVec   // labels: dataset, outcome={success,error}
	SourceFetchDuration *prometheus.HistogramVec // labels: dataset
	SourceCache         *prometheus.CounterVec   // labels: result={hit,miss,error}

	// Views.
	ViewRequests *prometheus.CounterVec // labels: view, outcome={fresh,stale,error}

	PublishErrors prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewUnregisteredMetrics()
	prometheus.MustRegister(
		m.PipelineRunning,
		m.Refreshes,
		m.RefreshDuration,
		m.SnapshotRows,
		m.SnapshotLoadedAt,
		m.SourceFetches,
		m.SourceFetchDuration,
		m.SourceCache,
		m.ViewRequests,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already registered"
// panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewUnregisteredMetrics()
}

// NewUnregisteredMetrics creates Metrics that are never exposed, for one-shot
// commands without a /metrics endpoint.
func NewUnregisteredMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the refresh scheduler is active, 0 when shut down.",
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Snapshot refresh attempts by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete load-and-derive refresh.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SnapshotRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_rows",
			Help:      "Rows held in the current snapshot by dataset.",
		}, []string{"dataset"}),
		SnapshotLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_loaded_timestamp_seconds",
			Help:      "Unix time the current snapshot was loaded.",
		}),
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_loads_total",
			Help:      "Source feed loads by dataset and outcome.",
		}, []string{"dataset", "outcome"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Source feed fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		}, []string{"dataset"}),
		SourceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_cache_total",
			Help:      "Source body cache lookups by result.",
		}, []string{"result"}),
		ViewRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_requests_total",
			Help:      "Dashboard view computations by view and outcome.",
		}, []string{"view", "outcome"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Snapshot summaries that failed to publish.",
		}),
	}
}
