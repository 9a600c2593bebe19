package rag

import (
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

// CompatEmbedder talks to any OpenAI-compatible embeddings endpoint,
// typically a local Ollama server at http://localhost:11434/v1.
type CompatEmbedder struct {
	client    *goopenai.Client
	model     string
	dimension int
}

// NewCompatEmbedder creates an embedder for an OpenAI-compatible base URL.
// Ollama ignores the key, so a placeholder is used when none is given.
func NewCompatEmbedder(apiKey, baseURL, model string, dimension int) *CompatEmbedder {
	if apiKey == "" {
		apiKey = "ollama"
	}

	config := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = strings.TrimRight(baseURL, "/") + "/v1"
		}
		config.BaseURL = baseURL
	}

	return &CompatEmbedder{
		client:    goopenai.NewClientWithConfig(config),
		model:     model,
		dimension: dimension,
	}
}

// GetModel returns the embedding model identifier
func (e *CompatEmbedder) GetModel() string {
	return e.model
}

// GetDimension returns the embedding vector dimension
func (e *CompatEmbedder) GetDimension() int {
	return e.dimension
}

// Embed returns one record per text in input order.
func (e *CompatEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}

	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	vectors := make([]indexedVector, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = indexedVector{index: data.Index, vector: data.Embedding}
	}
	return collectRecords(texts, e.model, e.dimension, vectors)
}
