package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ChatCompletionsURL is the endpoint path batch requests are addressed to.
const ChatCompletionsURL = "/v1/chat/completions"

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	Token   string
	BaseURL string // empty means the public API
	Model   string

	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64

	HTTPClient *http.Client
}

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

// NewOpenAIClient creates a client for cfg.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("openai: API token not set")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai: model not set")
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("openai: negative request rate %v", cfg.RequestsPerSecond)
	}

	oc := openai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	c := &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	slog.Debug("openai client ready", "model", cfg.Model, "base_url", oc.BaseURL, "rps", cfg.RequestsPerSecond)
	return c, nil
}

// NewChatRequest builds the single-message request sent for a prompt.
func NewChatRequest(model, prompt string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
}

// Submit sends prompt and returns the first choice with token usage.
func (c *OpenAIClient) Submit(ctx context.Context, prompt string) (Reply, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Reply{}, fmt.Errorf("openai: %w", err)
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, NewChatRequest(c.model, prompt))
	if err != nil {
		if isTooManyRequests(err) {
			return Reply{}, &RateLimitError{Err: err}
		}
		return Reply{}, fmt.Errorf("openai: chat completion failed: %w", err)
	}
	return ReplyFromResponse(resp)
}

// ReplyFromResponse extracts the reply text and usage from a chat
// completion response.
func ReplyFromResponse(resp openai.ChatCompletionResponse) (Reply, error) {
	if len(resp.Choices) == 0 {
		return Reply{}, fmt.Errorf("openai: response has no choices")
	}
	return Reply{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func isTooManyRequests(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
