package llm

import (
	"context"
	"strings"
	"sync"
)

// MockLLM is a deterministic LLM implementation for testing and offline runs.
// It returns predictable responses based on prompt content and is safe for
// concurrent use; read LastPrompt and Calls through Stats while calls are in flight.
type MockLLM struct {
	mu sync.Mutex


	// Response is the fixed text returned by Generate.
	// If empty, a default response is generated from the prompt.
	Response string

	// Error, if set, is returned by Generate instead of a response.
	Error error

	// LastPrompt stores the most recent prompt passed to Generate.
	LastPrompt string

	// Calls counts Generate invocations.
	Calls int
}

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Generate returns the configured response or generates a deterministic one.
func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Calls++
	m.LastPrompt = prompt
	m.mu.Unlock()

	if m.Error != nil {
		return "", m.Error
	}

	if m.Response != "" {
		return m.Response, nil
	}

	return generateMockResponse(prompt), nil
}

// Stats returns the call count and the most recent prompt.
func (m *MockLLM) Stats() (calls int, lastPrompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls, m.LastPrompt
}

// generateMockResponse quotes the first line of the first context block,
// or replies NOT_FOUND when the prompt carries no context.
func generateMockResponse(prompt string) string {
	lines := strings.Split(prompt, "\n")
	for i, line := range lines {
		if !isBlockHeader(line) {
			continue
		}
		for _, body := range lines[i+1:] {
			body = strings.TrimSpace(strings.ReplaceAll(body, `"`, ""))
			if body == "" {
				continue
			}
			return `Based on our records: "` + body + `"`
		}
	}
	return "NOT_FOUND"
}

func isBlockHeader(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, "[") && strings.Contains(line, "] (source:")
}
