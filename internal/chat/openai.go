package chat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// completionAPI is the slice of the OpenAI client the provider needs.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider sends full transcripts to the OpenAI chat-completion
// endpoint and returns the top reply.
type OpenAIProvider struct {
	logger      *slog.Logger
	client      completionAPI
	model       string
	temperature float32
}

// NewOpenAIProvider builds a provider for the given model. An empty baseURL
// targets the public OpenAI endpoint; a positive timeout bounds every
// completion call.
func NewOpenAIProvider(log *slog.Logger, apiKey, baseURL, model string, temperature float32, timeout time.Duration) *OpenAIProvider {
	if log == nil {
		log = slog.Default()
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &OpenAIProvider{
		logger:      log.With(slog.String("service", "chat")),
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: temperature,
	}
}

// Complete sends the ordered transcript and returns the first choice's
// content. The transcript is read, never mutated.
func (p *OpenAIProvider) Complete(ctx context.Context, transcript []Message) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(transcript))
	for _, m := range transcript {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: p.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ErrCompletionFailed)
	}

	reply := resp.Choices[0].Message.Content
	p.logger.Debug("completion succeeded",
		slog.String("model", p.model),
		slog.Int("transcript_len", len(transcript)),
		slog.Int("reply_len", len(reply)))
	return reply, nil
}
