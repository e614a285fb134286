// Package metrics exposes Prometheus collectors for the sync pipeline and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SheetsProcessed counts sheets by source and outcome status.
	SheetsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablero_sheets_total",
			Help: "Sheets handled by the sync pipeline",
		},
		[]string{"source", "status"},
	)

	// SheetsSkipped counts structurally unusable sheets by reason.
	SheetsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablero_sheets_skipped_total",
			Help: "Sheets skipped because no header or date column was found",
		},
		[]string{"source", "reason"},
	)

	// RowsDropped counts rows discarded during normalization.
	RowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablero_rows_dropped_total",
			Help: "Rows dropped during normalization",
		},
		[]string{"source", "reason"},
	)

	// RecordsWritten counts records upserted into the store.
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablero_records_written_total",
			Help: "Records inserted or updated in the store",
		},
		[]string{"source"},
	)

	// SourceFailures counts sources that could not be fetched.
	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablero_source_failures_total",
			Help: "Sources that failed to download",
		},
		[]string{"source"},
	)

	// SyncDuration tracks the duration of a full sync of one source.
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tablero_sync_duration_seconds",
			Help:    "Time spent fetching and processing one source",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// RequestsTotal tracks total number of HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablero_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code"},
	)

	// RequestDuration tracks request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tablero_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// ActiveRequests tracks currently active requests.
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tablero_http_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count, latency and in-flight requests. The
// route label is the matched ServeMux pattern so path parameters do not
// explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ActiveRequests.Inc()
		defer ActiveRequests.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
