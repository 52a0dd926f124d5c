// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesParsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitsearch_queries_parsed_total",
			Help: "Queries parsed, by record kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	executeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unitsearch_execute_duration_seconds",
			Help:    "Record store search latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store", "status"},
	)
	recordsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitsearch_records_written_total",
			Help: "Records put or deleted",
		},
		[]string{"store", "operation"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unitsearch_http_requests_total",
			Help: "HTTP requests, by route and status code",
		},
		[]string{"route", "code"},
	)
)

func init() {
	prometheus.MustRegister(queriesParsed, executeDuration, recordsWritten, httpRequests)
}

// ObserveParse counts one parse. outcome is "ok" or an error kind.
func ObserveParse(kind, outcome string) {
	queriesParsed.WithLabelValues(kind, outcome).Inc()
}

// ObserveExecute records the latency of one store search.
func ObserveExecute(store string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	executeDuration.WithLabelValues(store, status).Observe(elapsed.Seconds())
}

// ObserveWrite counts records written to a store.
func ObserveWrite(store, operation string, n int) {
	recordsWritten.WithLabelValues(store, operation).Add(float64(n))
}

// ObserveRequest counts one HTTP request.
func ObserveRequest(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}
