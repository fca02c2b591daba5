package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/footfall/footfall/internal/completion"
	"github.com/footfall/footfall/internal/plot"
	"github.com/footfall/footfall/internal/store"
)

func TestPlotEndpoint(t *testing.T) {
	runner := &fakePlotRunner{summary: plot.Summary{Summary: "Traffic peaked on Saturdays."}}
	h := NewHandler(testConfig(t), Dependencies{Plot: runner})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plot?prompt=busiest+day+of+week", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var body plot.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if body.Summary != "Traffic peaked on Saturdays." {
		t.Fatalf("summary = %q", body.Summary)
	}
	if runner.lastArg != "busiest day of week" {
		t.Fatalf("prompt passed = %q", runner.lastArg)
	}
}

func TestPlotEndpointMissingPrompt(t *testing.T) {
	runner := &fakePlotRunner{}
	h := NewHandler(testConfig(t), Dependencies{Plot: runner})

	for _, target := range []string{"/plot", "/plot?prompt=", "/plot?prompt=%20%20"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("GET %s status = %d", target, rr.Code)
		}
		if code := errorCode(t, rr); code != "PROMPT_REQUIRED" {
			t.Fatalf("GET %s error_code = %q", target, code)
		}
	}
	if runner.calls != 0 {
		t.Fatalf("runner calls = %d, want 0", runner.calls)
	}
}

func TestPlotEndpointNotConfigured(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plot?prompt=x", nil))

	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestPlotEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed response",
			err:        &completion.MalformedResponseError{Response: "not json", Err: errors.New("invalid character")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "MALFORMED_RESPONSE",
		},
		{
			name:       "provider failure",
			err:        &completion.ProviderError{Err: errors.New("connection refused")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "COMPLETION_FAILED",
		},
		{
			name:       "query execution failure",
			err:        &store.QueryError{SQL: "SELECT bogus", Err: errors.New("no such column")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "QUERY_EXECUTION_FAILED",
		},
		{
			name:       "empty prompt surfaced by pipeline",
			err:        plot.ErrEmptyPrompt,
			wantStatus: http.StatusBadRequest,
			wantCode:   "PROMPT_REQUIRED",
		},
		{
			name:       "unclassified failure",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(testConfig(t), Dependencies{Plot: &fakePlotRunner{err: tc.err}})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plot?prompt=anything", nil))

			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			if code := errorCode(t, rr); code != tc.wantCode {
				t.Fatalf("error_code = %q, want %q", code, tc.wantCode)
			}
		})
	}
}

func TestPlotEndpointWrappedErrorMapping(t *testing.T) {
	wrapped := errors.Join(errors.New("execute query"), &store.QueryError{SQL: "SELECT 1", Err: errors.New("locked")})
	h := NewHandler(testConfig(t), Dependencies{Plot: &fakePlotRunner{err: wrapped}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plot?prompt=anything", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if code := errorCode(t, rr); code != "QUERY_EXECUTION_FAILED" {
		t.Fatalf("error_code = %q", code)
	}
}

func TestPlotEndpointErrorHidesDetail(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Plot: &fakePlotRunner{err: errors.New("dsn=user:hunter2@localhost")},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plot?prompt=anything", nil))

	if body := rr.Body.String(); strings.Contains(body, "hunter2") {
		t.Fatalf("response leaks internal error detail: %s", body)
	}
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	code, _ := body["error_code"].(string)
	return code
}
