// Package llm provides the answer generator used by the pipeline.
// It defines a provider-agnostic LLM interface with implementations for OpenAI,
// OpenAI-compatible servers such as Ollama, and a deterministic mock for testing.
// The generator consumes pre-assembled prompts and returns the raw candidate text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid LLM configuration")
)

// Supported generation providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// LLM defines the interface for interacting with language models.
// Implementations must be stateless and thread-safe.
type LLM interface {
	// Generate produces text from a prompt using the configured model.
	// Returns the generated text or an error if generation fails.
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMConfig holds common configuration options for LLM providers.
type LLMConfig struct {
	// Provider selects the backend: openai, ollama or mock
	Provider string `toml:"provider"`

	// Model specifies the model identifier (e.g., "gpt-4o-mini", "llama3.1")
	Model string `toml:"model"`

	// Temperature controls randomness (0.0 = deterministic, 2.0 = very random)
	Temperature float32 `toml:"temperature"`

	// MaxTokens limits the response length (0 = use provider default)
	MaxTokens int `toml:"max_tokens"`

	// APIKey is the authentication key for the provider
	APIKey string `toml:"api_key"`

	// BaseURL overrides the provider endpoint
	BaseURL string `toml:"base_url"`
}

// DefaultLLMConfig returns sensible defaults for grounded answering.
// Temperature stays at zero so repeated questions produce the same candidate.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:    ProviderOpenAI,
		Model:       "gpt-4o-mini",
		Temperature: 0,
		MaxTokens:   400,
	}
}

// NewLLM builds the LLM selected by config.Provider.
func NewLLM(config LLMConfig) (LLM, error) {
	switch strings.ToLower(config.Provider) {
	case ProviderOpenAI, "":
		return NewOpenAILLM(config)
	case ProviderOllama:
		return NewCompatLLM(config)
	case ProviderMock:
		return NewMockLLM(""), nil
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrInvalidConfig, config.Provider)
	}
}
