package diag

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistryHealthz(t *testing.T) {
	reg := NewRegistry()
	healthy := true
	srv := reg.Server("127.0.0.1:0", func() bool { return healthy })

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	healthy = false
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestRegistryMetrics(t *testing.T) {
	reg := NewRegistry()
	reg.AdmissionTotal.WithLabelValues("progress").Inc()
	reg.QueueDepth.Set(3)

	srv := reg.Server("127.0.0.1:0", nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "mikron_admission_total") {
		t.Fatalf("expected admission metric in body, got: %s", body)
	}
}
