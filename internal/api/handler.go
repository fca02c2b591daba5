package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/footfall/footfall/internal/config"
	"github.com/footfall/footfall/internal/observability"
	"github.com/footfall/footfall/internal/plot"
	"github.com/footfall/footfall/internal/store"
)

type ReadinessCheck func(ctx context.Context) error

// PlotRunner is the prompt-to-summary pipeline behind GET /plot.
type PlotRunner interface {
	Run(ctx context.Context, userPrompt string) (plot.Summary, error)
}

// CenterDirectory serves the fixed read-only lookup routes.
type CenterDirectory interface {
	ListEntries(ctx context.Context) (store.Result, error)
	ListCenters(ctx context.Context, nameFilter string) ([]store.Center, error)
	TrafficTrend(ctx context.Context, centerID string) ([]store.TrendPoint, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Plot              PlotRunner
	Directory         CenterDirectory
	UI                http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("GET /plot", func(w http.ResponseWriter, r *http.Request) {
		handlePlot(deps, w, r)
	})
	mux.HandleFunc("GET /entries", func(w http.ResponseWriter, r *http.Request) {
		handleEntries(deps, w, r)
	})
	mux.HandleFunc("GET /get-shopping-center-names", func(w http.ResponseWriter, r *http.Request) {
		handleCenterNames(deps, w, r)
	})
	mux.HandleFunc("GET /get-center-data", func(w http.ResponseWriter, r *http.Request) {
		handleCenterData(deps, w, r)
	})
	mux.HandleFunc("GET /foot-traffic-trend/{centerId}", func(w http.ResponseWriter, r *http.Request) {
		handleTrafficTrend(deps, w, r)
	})
	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	middlewares = append(middlewares, corsMiddleware(cfg))
	return chain(mux, middlewares...)
}

func CheckStore(directory CenterDirectory) ReadinessCheck {
	return func(ctx context.Context) error {
		if directory == nil {
			return errors.New("store is not configured")
		}
		_, err := directory.ListCenters(ctx, "")
		return err
	}
}

func CheckAIConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.AI.APIKey == "" {
			return errors.New("ai api key is not configured")
		}
		if cfg.AI.Model == "" {
			return errors.New("ai model is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func corsMiddleware(cfg config.Config) func(http.Handler) http.Handler {
	origins := splitOrigins(cfg.CORS.AllowedOrigins)
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Trace-ID"},
	})
	return c.Handler
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
