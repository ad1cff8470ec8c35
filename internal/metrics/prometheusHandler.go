package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rag_queries_total",
	Help: "Total RAG queries labelled by outcome",
}, []string{"outcome"})

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cache_lookups_total",
	Help: "Typed cache lookups labelled by entry type and hit/miss",
}, []string{"type", "result"})

var cacheSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "cache_size_bytes",
	Help: "Current total size of the typed cache",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func CountQuery(outcome string) {
	queriesTotal.WithLabelValues(outcome).Inc()
}

func CountCacheLookup(entryType string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(entryType, result).Inc()
}

func SetCacheSize(size int64) {
	cacheSizeBytes.Set(float64(size))
}

var queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "query_duration_seconds",
	Help:    "Total time spent answering one query.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureQueryMetrics(label string, timeElapsed time.Duration) {
	queryDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
