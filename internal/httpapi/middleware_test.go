package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestCorrelation_EchoesCallerID(t *testing.T) {
	srv, _, _ := newTestServer()

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "trace-me-123")
	rr := do(srv, req)

	if got := rr.Header().Get("X-Correlation-ID"); got != "trace-me-123" {
		t.Errorf("Expected the caller's correlation id echoed, got %q", got)
	}
}

func TestCorrelation_GeneratesID(t *testing.T) {
	srv, _, _ := newTestServer()

	rr := do(srv, httptest.NewRequest("GET", "/healthz", nil))

	got := rr.Header().Get("X-Correlation-ID")
	if got == "" {
		t.Fatal("Expected a generated correlation id on the response")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("Expected a UUID, got %q: %v", got, err)
	}
}
