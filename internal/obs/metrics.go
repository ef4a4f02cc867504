// Package obs exposes Prometheus metrics for the portal API.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_logins_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"result"},
	)

	validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_validations_total",
			Help: "Token validations by outcome.",
		},
		[]string{"result"},
	)

	appTokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_app_tokens_issued_total",
			Help: "App tokens issued per application.",
		},
		[]string{"app"},
	)

	revocationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_revocations_total",
		Help: "Administrative access revocations.",
	})
)

// Init registers the portal metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		loginsTotal, validationsTotal, appTokensIssuedTotal, revocationsTotal,
	)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordLogin counts a login attempt.
func RecordLogin(success bool) {
	loginsTotal.WithLabelValues(result(success)).Inc()
}

// RecordValidation counts a validation outcome.
func RecordValidation(success bool) {
	validationsTotal.WithLabelValues(result(success)).Inc()
}

// RecordAppToken counts an issued app token.
func RecordAppToken(appID string) {
	appTokensIssuedTotal.WithLabelValues(appID).Inc()
}

// RecordRevocation counts an administrative revocation.
func RecordRevocation() {
	revocationsTotal.Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// Instrument wraps a handler with request count, latency, and in-flight
// gauges. Paths are recorded as-is; the route surface is small and static.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
