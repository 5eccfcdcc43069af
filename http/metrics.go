package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iris",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "iris",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	requestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "iris",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})

	predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iris",
		Name:      "predictions_total",
		Help:      "Predictions served by species.",
	}, []string{"species"})

	predictionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "iris",
		Name:      "prediction_cache_hits_total",
		Help:      "Predictions answered from the LRU cache.",
	})

	predictionCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "iris",
		Name:      "prediction_cache_misses_total",
		Help:      "Predictions that required model inference.",
	})

	artifactChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "iris",
		Name:      "model_artifact_changes_total",
		Help:      "Artifact changes observed on disk since startup.",
	})
)

// knownPaths keeps the path label bounded, unknown request paths all
// collapse into one label value.
var knownPaths = map[string]bool{
	"/":                 true,
	"/health":           true,
	"/model-info":       true,
	"/species-info":     true,
	"/examples":         true,
	"/predict":          true,
	"/predict-batch":    true,
	"/training-history": true,
	"/metrics":          true,
}

func metricsPath(path string) string {
	if knownPaths[path] {
		return path
	}
	return "other"
}

// MetricsMiddleware records request counts, latency and in-flight gauge.
// The WebSocket route is skipped, long-lived connections would distort
// the latency histogram.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := metricsPath(r.URL.Path)
		requestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// ObservePrediction counts one served prediction.
func ObservePrediction(species string, cached bool) {
	predictionsTotal.WithLabelValues(species).Inc()
	if cached {
		predictionCacheHits.Inc()
	} else {
		predictionCacheMisses.Inc()
	}
}

// ObserveArtifactChange counts one on-disk artifact change.
func ObserveArtifactChange() {
	artifactChanges.Inc()
}
