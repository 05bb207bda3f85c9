package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"fintrack/internal/metrics"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m := metrics.New()
	tm := NewMiddleware(nil, m)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(tm.Handler)
	r.Get("/loans/{id}", func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("request id missing")
		}
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/loans/a", "/loans/b", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := tm.TotalRequests(); got != 3 {
		t.Errorf("TotalRequests() = %d, want 3", got)
	}
	n, err := testutil.GatherAndCount(m.Registry, "fintrack_http_request_duration_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 route series (pattern and unmatched), got %d", n)
	}
}

func TestRoutePatternWithoutRouter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if got := RoutePattern(req); got != "unmatched" {
		t.Errorf("RoutePattern() = %q, want unmatched", got)
	}
}
