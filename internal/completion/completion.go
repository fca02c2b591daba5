package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/footfall/footfall/internal/observability"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// maxAttempts bounds the total number of completion calls for one structured
// request: the initial call plus at most one re-issue on a malformed response.
const maxAttempts = 2

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Options struct {
	Model       string
	Temperature float64
}

// Chunk is one incremental text delta from a streamed completion. Err is set
// on the final chunk when the stream terminated abnormally.
type Chunk struct {
	Delta string
	Err   error
}

// Streamer produces a lazy, finite sequence of text deltas for one chat
// completion call. The channel is closed when the provider signals completion.
type Streamer interface {
	StreamCompletion(ctx context.Context, deployment string, messages []Message, opts Options) (<-chan Chunk, error)
}

// Router maps a requested model identifier to a provider deployment. The
// configured primary model routes to the primary deployment; every other
// value routes to the fallback deployment, whose responses may arrive wrapped
// in a fenced code block.
type Router struct {
	PrimaryModel string
	Primary      string
	Fallback     string
}

func (r Router) Route(model string) string {
	if model == r.PrimaryModel {
		return r.Primary
	}
	return r.Fallback
}

type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("chat completion failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

type MalformedResponseError struct {
	Response string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed completion response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

type Request struct {
	Messages   []Message
	Options    Options
	AllowRetry bool
	OnToken    func(delta string)
}

type Client struct {
	streamer Streamer
	router   Router
	logger   *slog.Logger
}

func NewClient(streamer Streamer, router Router, logger *slog.Logger) (*Client, error) {
	if streamer == nil {
		return nil, fmt.Errorf("streamer is required")
	}
	if strings.TrimSpace(router.Primary) == "" || strings.TrimSpace(router.Fallback) == "" {
		return nil, fmt.Errorf("router deployments are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{streamer: streamer, router: router, logger: logger}, nil
}

// Complete issues one streamed completion call and returns the accumulated
// response text. Responses routed through the fallback deployment get an
// optional enclosing fenced code block stripped. Provider failures are never
// retried here.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("messages are required")
	}

	deployment := c.router.Route(req.Options.Model)
	c.logger.DebugContext(ctx, "completion_request",
		slog.String("deployment", deployment),
		slog.String("model", req.Options.Model),
		slog.Float64("temperature", req.Options.Temperature),
		slog.Int("messages", len(req.Messages)),
	)

	start := time.Now()
	chunks, err := c.streamer.StreamCompletion(ctx, deployment, req.Messages, req.Options)
	if err != nil {
		observability.ObserveCompletion(deployment, "error", time.Since(start))
		return "", &ProviderError{Err: err}
	}

	var builder strings.Builder
	var streamErr error
	for chunk := range chunks {
		if chunk.Err != nil {
			streamErr = chunk.Err
			break
		}
		builder.WriteString(chunk.Delta)
		if req.OnToken != nil {
			req.OnToken(chunk.Delta)
		}
	}
	if streamErr != nil {
		observability.ObserveCompletion(deployment, "error", time.Since(start))
		return "", &ProviderError{Err: streamErr}
	}

	response := builder.String()
	if deployment == c.router.Fallback {
		response = extractFencedContent(response)
	}

	observability.ObserveCompletion(deployment, "ok", time.Since(start))
	c.logger.DebugContext(ctx, "completion_response",
		slog.String("deployment", deployment),
		slog.Int("length", len(response)),
		slog.String("response", response),
	)
	return response, nil
}

// CompleteJSON issues a streamed completion call and decodes the accumulated
// response into out. When the response does not parse and req.AllowRetry is
// set, the entire request is re-issued exactly once; a second parse failure
// surfaces as a MalformedResponseError.
func (c *Client) CompleteJSON(ctx context.Context, req Request, out any) error {
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("out must be a non-nil pointer")
	}

	attempts := 1
	if req.AllowRetry {
		attempts = maxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			observability.IncrementCompletionRetry()
			c.logger.WarnContext(ctx, "completion_retry",
				slog.Int("attempt", attempt),
				slog.Any("error", lastErr),
			)
		}

		response, err := c.Complete(ctx, req)
		if err != nil {
			return err
		}

		// Decode into a fresh value so fields partially written by a failed
		// attempt never leak into out across a retry.
		decoded := reflect.New(target.Type().Elem())
		if err := json.Unmarshal([]byte(response), decoded.Interface()); err != nil {
			lastErr = &MalformedResponseError{Response: response, Err: err}
			continue
		}
		target.Elem().Set(decoded.Elem())
		return nil
	}
	return lastErr
}

var fencedBlock = regexp.MustCompile("(?s)```(?:\\w+\n)?(.*?)```")

// extractFencedContent returns the content of the first fenced code block in
// value, trimmed. Responses without a fence pass through unchanged.
func extractFencedContent(value string) string {
	match := fencedBlock.FindStringSubmatch(value)
	if len(match) < 2 {
		return value
	}
	return strings.TrimSpace(match[1])
}
