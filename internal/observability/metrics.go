package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics for the service.
type Metrics struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	masqueradeStarted  prometheus.Counter
	masqueradeEnded    prometheus.Counter
	masqueradeFailed   *prometheus.CounterVec
	permissionDenials  prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumina_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lumina_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	started := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lumina_masquerade_sessions_started_total",
		Help: "Masquerade sessions started.",
	})
	ended := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lumina_masquerade_sessions_ended_total",
		Help: "Masquerade sessions ended, including supersessions and sweeps.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumina_masquerade_failures_total",
		Help: "Masquerade operations rejected or failed, by reason.",
	}, []string{"reason"})
	denials := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lumina_permission_denials_total",
		Help: "Permission checks that resolved to a denial.",
	})
	registry.MustRegister(requests, duration, started, ended, failed, denials)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		masqueradeStarted: started,
		masqueradeEnded:   ended,
		masqueradeFailed:  failed,
		permissionDenials: denials,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// MasqueradeStarted increments the started counter.
func (m *Metrics) MasqueradeStarted() {
	if m != nil {
		m.masqueradeStarted.Inc()
	}
}

// MasqueradeEnded adds to the ended counter.
func (m *Metrics) MasqueradeEnded(n int64) {
	if m != nil && n > 0 {
		m.masqueradeEnded.Add(float64(n))
	}
}

// MasqueradeFailed increments the failure counter for a reason label.
func (m *Metrics) MasqueradeFailed(reason string) {
	if m != nil {
		m.masqueradeFailed.WithLabelValues(reason).Inc()
	}
}

// PermissionDenied increments the denial counter.
func (m *Metrics) PermissionDenied() {
	if m != nil {
		m.permissionDenials.Inc()
	}
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
