package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTraceMiddlewareGeneratesID(t *testing.T) {
	var seen string
	handler := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/plot", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if seen == "" {
		t.Fatal("trace id was not set on context")
	}
	if got := rr.Header().Get("X-Trace-ID"); got != seen {
		t.Fatalf("response header trace id = %q, want %q", got, seen)
	}
}

func TestRouteLabel(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/plot", "/plot"},
		{"/v1/ready", "/v1/ready"},
		{"/foot-traffic-trend/cc-1", "/foot-traffic-trend/{centerId}"},
		{"/foot-traffic-trend/another-center", "/foot-traffic-trend/{centerId}"},
		{"/", "/{path...}"},
		{"/dashboard", "/{path...}"},
		{"/assets/app.js", "/{path...}"},
	}
	for _, tc := range cases {
		if got := routeLabel(tc.path); got != tc.want {
			t.Fatalf("routeLabel(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestTraceMiddlewarePreservesIncomingID(t *testing.T) {
	var seen string
	handler := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/plot", nil)
	req.Header.Set("X-Trace-ID", "trace-abc")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if seen != "trace-abc" {
		t.Fatalf("trace id = %q, want trace-abc", seen)
	}
}
