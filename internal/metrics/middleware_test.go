package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/v1/query", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest("POST", "/v1/query", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/v1/query", "200"))
	if val < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", val)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMiddleware_ImplicitOKStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/implicit", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("no explicit header"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/implicit", http.NoBody))

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/implicit", "200")); v < 1 {
		t.Errorf("expected implicit 200 to be recorded, got %f", v)
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/bad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	r.Get("/upstream", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	tests := []struct {
		path   string
		status string
	}{
		{"/bad", "400"},
		{"/upstream", "502"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tc.path, http.NoBody))

			val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", tc.path, tc.status))
			if val < 1 {
				t.Errorf("expected requests_total for %s with status %s >= 1, got %f", tc.path, tc.status, val)
			}
		})
	}
}

func TestRouteLabel_NoRouteContext(t *testing.T) {
	req := httptest.NewRequest("GET", "/x", http.NoBody)
	if got := routeLabel(req); got != "unknown" {
		t.Errorf("routeLabel() = %q, want unknown", got)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	RegisterEngineMetrics()
	RegisterEngineMetrics()
	RegisterQueryMetrics()
	RegisterQueryMetrics()
}
