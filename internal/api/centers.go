package api

import (
	"net/http"
	"strings"
)

func handleEntries(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Directory == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "STORE_NOT_CONFIGURED", "store dependencies are not configured", false, nil)
		return
	}
	result, err := deps.Directory.ListEntries(r.Context())
	if err != nil {
		writeStoreError(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Objects())
}

func handleCenterNames(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Directory == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "STORE_NOT_CONFIGURED", "store dependencies are not configured", false, nil)
		return
	}
	centers, err := deps.Directory.ListCenters(r.Context(), "")
	if err != nil {
		writeStoreError(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, centers)
}

func handleCenterData(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Directory == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "STORE_NOT_CONFIGURED", "store dependencies are not configured", false, nil)
		return
	}
	nameFilter := strings.TrimSpace(r.URL.Query().Get("center"))
	centers, err := deps.Directory.ListCenters(r.Context(), nameFilter)
	if err != nil {
		writeStoreError(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, centers)
}

func handleTrafficTrend(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Directory == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "STORE_NOT_CONFIGURED", "store dependencies are not configured", false, nil)
		return
	}
	centerID := strings.TrimSpace(r.PathValue("centerId"))
	if centerID == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "CENTER_ID_REQUIRED", "center id path parameter is required", false, nil)
		return
	}
	trend, err := deps.Directory.TrafficTrend(r.Context(), centerID)
	if err != nil {
		writeStoreError(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func writeStoreError(deps Dependencies, w http.ResponseWriter, r *http.Request, err error) {
	if deps.Logger != nil {
		deps.Logger.Error("store read failed", "error", err)
	}
	writeError(r.Context(), w, http.StatusInternalServerError, "STORE_ERROR", "failed to fetch data from the store", true, nil)
}
