// internal/insights/openai.go
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Completer sends one prompt to a text-generation service and returns the
// raw text. The generator only depends on this interface so tests can swap
// in a fake.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, temperature float32, maxTokens int) (string, error)
}

// OpenAICompleter is the production Completer backed by an OpenAI-compatible
// chat completion endpoint.
type OpenAICompleter struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAICompleter creates a completer for the given model. baseURL is
// optional and overrides the default API endpoint for compatible providers.
func NewOpenAICompleter(apiKey, baseURL, model string, logger *slog.Logger) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &OpenAICompleter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// Complete performs a single chat completion with a system and user message.
func (c *OpenAICompleter) Complete(ctx context.Context, system, prompt string, temperature float32, maxTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	c.logger.Debug("Completion finished",
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
