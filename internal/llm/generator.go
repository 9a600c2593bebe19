package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrGenerationFailed = errors.New("answer generation failed")
)

// Candidate is the raw, unvalidated text returned by the model for a prompt.
type Candidate struct {
	// Text is the generated answer exactly as returned
	Text string `json:"text"`

	// GeneratedAt is when this candidate was produced
	GeneratedAt time.Time `json:"generated_at"`

	// Model is the LLM model used to generate this candidate
	Model string `json:"model"`
}

// Generator produces candidate answers using an LLM.
// It invokes an LLM on an already-assembled prompt.
type Generator struct {
	llm    LLM
	config LLMConfig
}

// NewGenerator creates an answer generator with the given LLM implementation.
func NewGenerator(llm LLM, config LLMConfig) *Generator {
	return &Generator{
		llm:    llm,
		config: config,
	}
}

// Model returns the configured model identifier.
func (g *Generator) Model() string {
	return g.config.Model
}

// Generate invokes the LLM with an already-assembled prompt.
// It must not perform retrieval, prompt construction or validation.
func (g *Generator) Generate(ctx context.Context, prompt string) (*Candidate, error) {
	if g.llm == nil {
		return nil, fmt.Errorf("%w: LLM is required", ErrGenerationFailed)
	}
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrGenerationFailed)
	}

	text, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: LLM invocation failed: %w", ErrGenerationFailed, err)
	}

	return &Candidate{
		Text:        text,
		GeneratedAt: time.Now(),
		Model:       g.config.Model,
	}, nil
}
