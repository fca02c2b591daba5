// Package plot turns a natural-language question about shopping-center foot
// traffic into a SQL query, runs it, and summarizes the result.
package plot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/footfall/footfall/internal/completion"
	"github.com/footfall/footfall/internal/observability"
	"github.com/footfall/footfall/internal/prompt"
	"github.com/footfall/footfall/internal/store"
)

// ErrEmptyPrompt is returned when the user prompt is blank after trimming.
var ErrEmptyPrompt = errors.New("prompt is required")

// maxSummaryRows caps how many result rows are serialized into the summary
// prompt. Larger results are truncated, not rejected.
const maxSummaryRows = 20

// noRows marks outcomes where no query ran, keeping them out of the
// rows-returned histogram.
const noRows = -1

// GeneratedQuery is the shape the model must return for the query stage.
type GeneratedQuery struct {
	Query  string   `json:"query"`
	Params []string `json:"params"`
}

// Summary is the shape the model must return for the summary stage, and the
// payload handed back to callers.
type Summary struct {
	Summary string `json:"summary"`
}

// Completer is the completion surface the agent depends on.
type Completer interface {
	CompleteJSON(ctx context.Context, req completion.Request, out any) error
}

// Config carries the model selection and per-stage budgets for an Agent.
type Config struct {
	Model        string
	Temperature  float64
	AITimeout    time.Duration
	QueryTimeout time.Duration
}

// Agent orchestrates the prompt -> SQL -> execute -> summarize pipeline.
type Agent struct {
	completer Completer
	querier   store.Querier
	cfg       Config
	logger    *slog.Logger
}

func NewAgent(completer Completer, querier store.Querier, cfg Config, logger *slog.Logger) (*Agent, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if querier == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{completer: completer, querier: querier, cfg: cfg, logger: logger}, nil
}

// Run executes the full pipeline for one user prompt. Each stage is
// terminal: a failure is returned as-is, no later stage runs.
func (a *Agent) Run(ctx context.Context, userPrompt string) (Summary, error) {
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		observability.ObservePlotRun("empty_prompt", noRows)
		return Summary{}, ErrEmptyPrompt
	}
	started := time.Now()

	generated, err := a.generateQuery(ctx, userPrompt)
	if err != nil {
		observability.ObservePlotRun("generate_failed", noRows)
		return Summary{}, err
	}
	a.logger.Debug("query generated",
		slog.String("template", prompt.QueryTemplateVersion),
		slog.String("query", generated.Query),
		slog.Int("params", len(generated.Params)),
	)

	result, err := a.executeQuery(ctx, generated)
	if err != nil {
		observability.ObservePlotRun("query_failed", noRows)
		return Summary{}, err
	}
	rows := len(result.Rows)

	summary, err := a.summarize(ctx, userPrompt, result)
	if err != nil {
		observability.ObservePlotRun("summarize_failed", rows)
		return Summary{}, err
	}

	observability.ObservePlotRun("ok", rows)
	a.logger.Info("plot completed",
		slog.String("template", prompt.SummaryTemplateVersion),
		slog.Int("rows", rows),
		slog.Duration("elapsed", time.Since(started)),
	)
	return summary, nil
}

func (a *Agent) generateQuery(ctx context.Context, userPrompt string) (GeneratedQuery, error) {
	ctx, cancel := a.withAIBudget(ctx)
	defer cancel()

	req := completion.Request{
		Messages:   prompt.BuildQueryPrompt(userPrompt),
		Options:    completion.Options{Model: a.cfg.Model, Temperature: a.cfg.Temperature},
		AllowRetry: true,
	}
	// The generated query is passed to the store as-is; a blank or malformed
	// statement surfaces as an execution error, not a validation error here.
	var generated GeneratedQuery
	if err := a.completer.CompleteJSON(ctx, req, &generated); err != nil {
		return GeneratedQuery{}, fmt.Errorf("generate query: %w", err)
	}
	return generated, nil
}

func (a *Agent) executeQuery(ctx context.Context, generated GeneratedQuery) (store.Result, error) {
	if a.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.QueryTimeout)
		defer cancel()
	}
	result, err := a.querier.ExecuteQuery(ctx, generated.Query, generated.Params)
	if err != nil {
		return store.Result{}, fmt.Errorf("execute query: %w", err)
	}
	return result, nil
}

func (a *Agent) summarize(ctx context.Context, userPrompt string, result store.Result) (Summary, error) {
	serialized, err := serializeResult(result)
	if err != nil {
		return Summary{}, fmt.Errorf("serialize result: %w", err)
	}

	ctx, cancel := a.withAIBudget(ctx)
	defer cancel()

	req := completion.Request{
		Messages:   prompt.BuildSummaryPrompt(serialized, userPrompt),
		Options:    completion.Options{Model: a.cfg.Model, Temperature: a.cfg.Temperature},
		AllowRetry: true,
	}
	var summary Summary
	if err := a.completer.CompleteJSON(ctx, req, &summary); err != nil {
		return Summary{}, fmt.Errorf("summarize result: %w", err)
	}
	return summary, nil
}

func (a *Agent) withAIBudget(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.AITimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.cfg.AITimeout)
}

// serializeResult renders at most maxSummaryRows rows as a JSON array of
// column-keyed objects, matching what the summary prompt expects to embed.
func serializeResult(result store.Result) (string, error) {
	truncated := result.Truncate(maxSummaryRows)
	payload, err := json.Marshal(truncated.Objects())
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
