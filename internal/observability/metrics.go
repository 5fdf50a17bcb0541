package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for dashboard runs.
type Metrics struct {
	RunsTotal      prometheus.Counter
	RunErrors      *prometheus.CounterVec // labels: stage={load,reproject,map}
	RunDuration    prometheus.Histogram
	LastRunSuccess prometheus.Gauge

	// Dataset metrics from the most recent successful run.
	RecordsLoaded         *prometheus.GaugeVec // labels: dataset={deaths,pumps}
	MaxDeathsSameLocation prometheus.Gauge
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunErrors,
		m.RunDuration,
		m.LastRunSuccess,
		m.RecordsLoaded,
		m.MaxDeathsSameLocation,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cholera_dashboard",
			Name:      "runs_total",
			Help:      "Total dashboard pipeline runs, one per page load.",
		}),
		RunErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cholera_dashboard",
			Name:      "run_errors_total",
			Help:      "Failed dashboard runs by pipeline stage.",
		}, []string{"stage"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cholera_dashboard",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete load-reproject-summarize-map run.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cholera_dashboard",
			Name:      "last_run_success",
			Help:      "1 when the most recent run succeeded, 0 otherwise.",
		}),
		RecordsLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cholera_dashboard",
			Name:      "records_loaded",
			Help:      "Rows loaded per dataset in the most recent successful run.",
		}, []string{"dataset"}),
		MaxDeathsSameLocation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cholera_dashboard",
			Name:      "max_death_same_location",
			Help:      "Largest number of deaths recorded at one address.",
		}),
	}
}
