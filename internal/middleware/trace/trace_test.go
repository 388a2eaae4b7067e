package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tally/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf})
	m := NewMiddleware(logger, func(*http.Request) string { return "203.0.113.7" })

	var seenID string
	var seenComponent string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenComponent = log.FromContext(r.Context()).Component()
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses?x=1", nil))

	if !strings.HasPrefix(seenID, "req_") {
		t.Errorf("request ID = %q, want req_ prefix", seenID)
	}
	if got := rec.Header().Get(RequestIDHeader); got != seenID {
		t.Errorf("response header = %q, want %q", got, seenID)
	}
	if seenComponent != log.ComponentHTTP {
		t.Errorf("context logger component = %q", seenComponent)
	}

	out := buf.String()
	for _, want := range []string{"HTTP request started", "HTTP request completed", "status_code=418", "client_ip=203.0.113.7", "request_id=" + seenID} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d, want 1", got)
	}
}

func TestMiddlewareReusesUpstreamID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		header string
		reuse  bool
	}{
		{"abc-123", true},
		{"", false},
		{"has spaces", false},
		{strings.Repeat("x", 100), false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set(RequestIDHeader, tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		got := rec.Header().Get(RequestIDHeader)
		if (got == tt.header) != tt.reuse {
			t.Errorf("header %q: got %q, reuse=%v", tt.header, got, tt.reuse)
		}
	}
}

func TestMiddlewareCountsServerErrors(t *testing.T) {
	m := NewMiddleware(nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got := m.GetMetrics().ServerErrors; got != 1 {
		t.Errorf("ServerErrors = %d, want 1", got)
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	if got := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
