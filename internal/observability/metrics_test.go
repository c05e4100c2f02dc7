package observability_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/luminacare/lumina/internal/observability"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *observability.Metrics
	m.MasqueradeStarted()
	m.MasqueradeEnded(3)
	m.MasqueradeFailed("forbidden")
	m.PermissionDenied()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	res := httptest.NewRecorder()
	m.Middleware(next).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	if res.Code != http.StatusTeapot {
		t.Fatalf("nil middleware must pass through, got %d", res.Code)
	}
}

func TestMiddlewareRecordsRoute(t *testing.T) {
	m := observability.NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/orgs/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", m.Handler())

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/orgs/42", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := res.Body.String()
	if !strings.Contains(body, `lumina_http_requests_total{code="200",route="/orgs/{id}"} 1`) {
		t.Fatalf("request counter missing route pattern:\n%s", body)
	}
}

func TestMasqueradeCounters(t *testing.T) {
	m := observability.NewMetrics()
	m.MasqueradeStarted()
	m.MasqueradeStarted()
	m.MasqueradeEnded(1)
	m.MasqueradeFailed("forbidden")

	r := chi.NewRouter()
	r.Handle("/metrics", m.Handler())
	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := res.Body.String()

	for _, want := range []string{
		"lumina_masquerade_sessions_started_total 2",
		"lumina_masquerade_sessions_ended_total 1",
		`lumina_masquerade_failures_total{reason="forbidden"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, body)
		}
	}
}
