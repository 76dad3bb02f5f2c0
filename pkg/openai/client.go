package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/voynichlabs/voynich-backend/pkg/config"
)

// Client wraps the OpenAI chat completion API behind the analysis engine's
// invocation contract.
type Client struct {
	api *openai.Client
}

// Invocation carries everything one analysis call needs.
type Invocation struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	Temperature  float32
	MaxTokens    int
}

// Completion is the provider response the engine persists.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// New builds an OpenAI-backed invoker from configuration.
func New(cfg config.OpenAIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	return &Client{api: openai.NewClient(cfg.APIKey)}, nil
}

// Invoke runs one chat completion. Timeouts and cancellation are the
// caller's responsibility via ctx.
func (c *Client) Invoke(ctx context.Context, inv Invocation) (*Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       inv.Model,
		Temperature: inv.Temperature,
		MaxTokens:   inv.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: inv.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: inv.UserPrompt},
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return &Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
