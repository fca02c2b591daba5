package webstatic

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerServesShellAtRoot(t *testing.T) {
	rr := request(t, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("content type = %q", got)
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("cache control = %q, want no-store", got)
	}
	if !strings.Contains(rr.Body.String(), "<html") {
		t.Fatal("response is not the shell document")
	}
}

func TestHandlerFallsBackToShellForClientRoutes(t *testing.T) {
	rr := request(t, "/trends/cc-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "<html") {
		t.Fatal("client route did not receive the shell document")
	}
}

func TestHandlerMissingAssetIs404(t *testing.T) {
	rr := request(t, "/assets/gone.js")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func request(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}
