// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relister_http_duration_seconds",
		Help:    "Duration of inbound HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "status"})

	DestinationCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relister_destination_calls_total",
		Help: "Calls to the marketplace seller API",
	}, []string{"operation", "status"})

	DestinationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relister_destination_call_duration_seconds",
		Help:    "Latency of marketplace seller API calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relister_uploads_total",
		Help: "Finished upload runs by outcome",
	}, []string{"status", "reason"})

	ExtractionStrategy = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relister_extraction_strategy_total",
		Help: "Variant extraction results by winning strategy",
	}, []string{"strategy"})

	ImageDownloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relister_image_downloads_total",
		Help: "Image downloads by outcome",
	}, []string{"result"})

	UploadInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relister_upload_in_flight",
		Help: "1 while an upload holds the single-flight guard",
	})
)

// ObserveDestination records one seller API call
func ObserveDestination(operation string, status int, started time.Time) {
	DestinationCalls.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	DestinationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
