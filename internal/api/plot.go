package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/footfall/footfall/internal/completion"
	"github.com/footfall/footfall/internal/plot"
	"github.com/footfall/footfall/internal/store"
)

func handlePlot(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Plot == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PLOT_NOT_CONFIGURED", "plot dependencies are not configured", false, nil)
		return
	}

	userPrompt := strings.TrimSpace(r.URL.Query().Get("prompt"))
	if userPrompt == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "PROMPT_REQUIRED", "prompt query parameter is required", false, nil)
		return
	}

	summary, err := deps.Plot.Run(r.Context(), userPrompt)
	if err != nil {
		writePlotError(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// writePlotError maps pipeline failures to stable error codes under a
// uniform 500. Provider and model faults are retryable from the caller's
// side; a query the store rejected is not, since re-sending the same prompt
// tends to reproduce it.
func writePlotError(deps Dependencies, w http.ResponseWriter, r *http.Request, err error) {
	if deps.Logger != nil {
		deps.Logger.Error("plot failed", "error", err)
	}

	if errors.Is(err, plot.ErrEmptyPrompt) {
		writeError(r.Context(), w, http.StatusBadRequest, "PROMPT_REQUIRED", "prompt query parameter is required", false, nil)
		return
	}

	var malformed *completion.MalformedResponseError
	if errors.As(err, &malformed) {
		writeError(r.Context(), w, http.StatusInternalServerError, "MALFORMED_RESPONSE", "model returned an unusable response", true, nil)
		return
	}

	var provider *completion.ProviderError
	if errors.As(err, &provider) {
		writeError(r.Context(), w, http.StatusInternalServerError, "COMPLETION_FAILED", "completion provider request failed", true, nil)
		return
	}

	var queryErr *store.QueryError
	if errors.As(err, &queryErr) {
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_EXECUTION_FAILED", "generated query failed to execute", false, nil)
		return
	}

	writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", "internal server error", true, nil)
}
