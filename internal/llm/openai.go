package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// completionSeed pins sampling so repeated questions draw the same candidate
// as far as the API allows.
const completionSeed = 7

// OpenAILLM drafts answers with the OpenAI chat completions endpoint.
type OpenAILLM struct {
	client openai.Client
	config LLMConfig
}

// NewOpenAILLM creates an OpenAI-backed LLM. The key comes from config or
// OPENAI_API_KEY; extra request options are applied after it.
func NewOpenAILLM(config LLMConfig, opts ...option.RequestOption) (*OpenAILLM, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key (set OPENAI_API_KEY or provide in config)", ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}

	base := []option.RequestOption{option.WithAPIKey(apiKey)}
	if config.BaseURL != "" {
		base = append(base, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAILLM{
		client: openai.NewClient(append(base, opts...)...),
		config: config,
	}, nil
}

// Generate returns the first choice's text. A model refusal comes back as an
// empty string, which the validator treats as a declined answer.
func (o *OpenAILLM) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", ErrInvalidConfig)
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.config.Model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(float64(o.config.Temperature)),
		Seed:        openai.Int(completionSeed),
	}
	if o.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.config.MaxTokens))
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLLMFailed, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrLLMFailed)
	}

	msg := completion.Choices[0].Message
	if msg.Refusal != "" {
		return "", nil
	}
	return strings.TrimSpace(msg.Content), nil
}
