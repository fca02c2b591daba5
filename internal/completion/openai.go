package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// OpenAIStreamer adapts the OpenAI SDK's streaming chat completions to the
// Streamer interface. The deployment name is passed through as the model
// parameter, which is how OpenAI-compatible gateways select a backend.
type OpenAIStreamer struct {
	client openai.Client
}

func NewOpenAIStreamer(cfg OpenAIConfig) (*OpenAIStreamer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &OpenAIStreamer{client: openai.NewClient(opts...)}, nil
}

func (s *OpenAIStreamer) StreamCompletion(ctx context.Context, deployment string, messages []Message, opts Options) (<-chan Chunk, error) {
	if strings.TrimSpace(deployment) == "" {
		return nil, fmt.Errorf("deployment is required")
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	stream := s.client.Chat.Completions.NewStreaming(ctx, newChatParams(deployment, messages, opts))
	chunks := make(chan Chunk)

	go func() {
		defer close(chunks)
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			event := stream.Current()
			for _, choice := range event.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				select {
				case chunks <- Chunk{Delta: choice.Delta.Content}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := stream.Err(); err != nil && !errors.Is(err, io.EOF) {
			select {
			case chunks <- Chunk{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return chunks, nil
}

// newChatParams always forwards the configured temperature, so 0 remains a
// usable value for fully deterministic sampling.
func newChatParams(deployment string, messages []Message, opts Options) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(deployment),
		Messages:    toSDKMessages(messages),
		Temperature: openai.Float(opts.Temperature),
	}
}

func toSDKMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	converted := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			converted[i] = openai.SystemMessage(msg.Content)
		case RoleAssistant:
			converted[i] = openai.AssistantMessage(msg.Content)
		default:
			converted[i] = openai.UserMessage(msg.Content)
		}
	}
	return converted
}
