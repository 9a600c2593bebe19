package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Yates-Labs/verbatim/internal/answer"
	"github.com/Yates-Labs/verbatim/internal/llm"
	"github.com/Yates-Labs/verbatim/internal/rag"
)

var (
	ErrEmptyQuestion         = errors.New("question cannot be empty")
	ErrGenerationUnavailable = errors.New("generation unavailable")
)

// Retriever returns ranked hits for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]rag.Hit, error)
}

// Generator drafts a candidate answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*llm.Candidate, error)
}

// Outcome is the full record of one answered question. Response is the
// external contract; the rest is kept for verbose output and logs.
type Outcome struct {
	Response  answer.Response     `json:"response"`
	Gate      answer.GateDecision `json:"gate"`
	Evidence  []string            `json:"evidence"`
	Verdict   *answer.Verdict     `json:"verdict,omitempty"`
	Candidate string              `json:"candidate,omitempty"`
	Duration  time.Duration       `json:"duration"`
}

// Pipeline answers questions: retrieve, gate, compose, generate, validate, assemble.
// It holds no per-request state and is safe for concurrent use when its
// collaborators are.
type Pipeline struct {
	config    answer.Config
	retriever Retriever
	generator Generator
	validator *answer.Validator
}

// NewPipeline wires the decision logic around a retriever and a generator.
func NewPipeline(config answer.Config, retriever Retriever, generator Generator) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if retriever == nil {
		return nil, fmt.Errorf("retriever cannot be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}

	return &Pipeline{
		config:    config,
		retriever: retriever,
		generator: generator,
		validator: answer.NewValidator(config.MinQuoteLength),
	}, nil
}

// Config returns the answer configuration in use.
func (p *Pipeline) Config() answer.Config {
	return p.config
}

// Answer runs one question through the pipeline. Refusals are returned as
// normal outcomes; only collaborator failures produce an error, wrapping
// rag.ErrRetrievalUnavailable or ErrGenerationUnavailable.
func (p *Pipeline) Answer(ctx context.Context, question string) (*Outcome, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	start := time.Now()

	// Stage 1: Retrieval
	hits, err := p.retriever.Retrieve(ctx, question, p.config.SearchDepth())
	if err != nil {
		if !errors.Is(err, rag.ErrRetrievalUnavailable) {
			err = fmt.Errorf("%w: %w", rag.ErrRetrievalUnavailable, err)
		}
		log.Printf("[Answer Pipeline] Retrieval failed: %v", err)
		return nil, err
	}

	// Stage 2: Confidence gate
	gate := answer.Evaluate(hits, p.config.SimilarityThreshold)
	evidence := answer.Admit(hits, p.config.TopK)
	outcome := &Outcome{
		Gate:     gate,
		Evidence: evidence.ChunkIDs(),
	}
	if !gate.Pass {
		log.Printf("[Answer Pipeline] Refused: confidence %.3f below threshold %.3f", gate.Confidence, p.config.SimilarityThreshold)
		outcome.Response = answer.Assemble(gate, nil, evidence, "")
		outcome.Duration = time.Since(start)
		return outcome, nil
	}

	// Stage 3: Generation
	prompt := answer.Compose(evidence, question)
	candidate, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		log.Printf("[Answer Pipeline] Generation failed: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}

	// Stage 4: Validation
	verdict := p.validator.Validate(candidate.Text, evidence)
	outcome.Verdict = &verdict
	outcome.Candidate = candidate.Text
	outcome.Response = answer.Assemble(gate, &verdict, evidence, candidate.Text)
	outcome.Duration = time.Since(start)

	if verdict.Accepted {
		log.Printf("[Answer Pipeline] Answered from %v (confidence %.3f)", outcome.Response.Sources, gate.Confidence)
	} else {
		log.Printf("[Answer Pipeline] Refused: %s (confidence %.3f)", verdict.RejectionReason, gate.Confidence)
	}
	return outcome, nil
}
