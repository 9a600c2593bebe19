package llm

import (
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

const defaultOllamaURL = "http://localhost:11434"

// CompatLLM talks to an OpenAI-compatible chat endpoint such as a local Ollama server.
type CompatLLM struct {
	client *goopenai.Client
	config LLMConfig
}

// NewCompatLLM creates a chat client for config.BaseURL (Ollama's default when empty).
func NewCompatLLM(config LLMConfig) (*CompatLLM, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = "ollama"
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL = strings.TrimRight(baseURL, "/") + "/v1"
	}

	cc := goopenai.DefaultConfig(apiKey)
	cc.BaseURL = baseURL

	return &CompatLLM{
		client: goopenai.NewClientWithConfig(cc),
		config: config,
	}, nil
}

// Generate sends the prompt as a single user message.
func (c *CompatLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", ErrInvalidConfig)
	}

	req := goopenai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLLMFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no response generated", ErrLLMFailed)
	}

	return resp.Choices[0].Message.Content, nil
}
