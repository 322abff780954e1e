package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RowsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_rows_dropped_total",
			Help: "Total number of rows dropped during batch validation",
		},
	)

	EventsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_events_rejected_total",
			Help: "Total number of streaming events rejected",
		},
		[]string{"reason"},
	)

	EventsDeduplicated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_events_deduplicated_total",
			Help: "Total number of duplicate events skipped by the consumer",
		},
	)

	BatchesFlushed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_batches_flushed_total",
			Help: "Total number of micro-batch flush attempts",
		},
		[]string{"status"},
	)

	RowsLoaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sink_rows_loaded_total",
			Help: "Total number of rows written to the sink",
		},
	)

	SinkCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_calls_total",
			Help: "Total number of sink method calls",
		},
		[]string{"method", "status"},
	)

	SinkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sink_duration_seconds",
			Help:    "Duration of sink method calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// InitMetrics registers the pipeline collectors and, when addr is non-empty,
// serves /metrics there. The producer runs with serving disabled so a
// producer|consumer pair on one host does not fight over the port.
func InitMetrics(addr string) {
	prometheus.MustRegister(
		RowsDropped,
		EventsRejected,
		EventsDeduplicated,
		BatchesFlushed,
		RowsLoaded,
		SinkCalls,
		SinkDuration,
	)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		http.ListenAndServe(addr, mux)
	}()
}
