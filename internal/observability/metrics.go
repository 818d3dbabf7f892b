package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "snowpack_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for a load run.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	SlicesPlanned   prometheus.Gauge
	SlicesCompleted prometheus.Counter

	// Report generator metrics.
	ReportRequests *prometheus.CounterVec // labels: outcome={success,error,retry}
	ReportDuration prometheus.Histogram
	ReportBytes    prometheus.Counter

	// Transform metrics.
	RowsParsed   prometheus.Counter
	RowsFiltered prometheus.Counter

	// Document store metrics.
	StationsWritten     *prometheus.CounterVec // labels: result={created,existing}
	StationCache        *prometheus.CounterVec // labels: result={hit,miss}
	ObservationsWritten *prometheus.CounterVec // labels: result={created,duplicate}
	LoadDuration        prometheus.Histogram

	// Event publisher metrics.
	EventsPublished prometheus.Counter
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PipelineRunning,
		m.SlicesPlanned,
		m.SlicesCompleted,
		m.ReportRequests,
		m.ReportDuration,
		m.ReportBytes,
		m.RowsParsed,
		m.RowsFiltered,
		m.StationsWritten,
		m.StationCache,
		m.ObservationsWritten,
		m.LoadDuration,
		m.EventsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a load run is in progress, 0 otherwise.",
		}),
		SlicesPlanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slices_planned",
			Help:      "Number of time-sliced report requests in the current run.",
		}),
		SlicesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slices_completed_total",
			Help:      "Report requests fetched, transformed and loaded.",
		}),
		ReportRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_requests_total",
			Help:      "Report generator HTTP attempts by outcome.",
		}, []string{"outcome"}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_request_duration_seconds",
			Help:      "Report generator request duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}),
		ReportBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_bytes_total",
			Help:      "Bytes of CSV received from the report generator.",
		}),
		RowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_parsed_total",
			Help:      "CSV records parsed into rows.",
		}),
		RowsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_filtered_total",
			Help:      "Rows removed by the region filter.",
		}),
		StationsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stations_written_total",
			Help:      "Station upserts by result.",
		}, []string{"result"}),
		StationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_cache_total",
			Help:      "Known-station cache lookups by result.",
		}, []string{"result"}),
		ObservationsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_written_total",
			Help:      "Observation inserts by result.",
		}, []string{"result"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of the write phase for one report.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Observation events written to Kafka.",
		}),
	}
}
