package rag

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var (
	ErrEmptyTexts      = errors.New("no texts provided for embedding")
	ErrMissingAPIKey   = errors.New("OPENAI_API_KEY environment variable not set")
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// maxInputsPerRequest is the OpenAI limit on inputs in one embeddings call.
const maxInputsPerRequest = 2048

// EmbeddingRecord is the vector for texts[Index] of an Embed call.
type EmbeddingRecord struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
	Model     string    `json:"model"`
}

// Embedder turns texts into vectors. Query and chunk vectors must come from
// the same model, and identical text must embed identically.
type Embedder interface {
	// Embed returns one record per text, in input order
	Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error)

	GetModel() string
	GetDimension() int
}

// OpenAIEmbedder embeds through the OpenAI embeddings endpoint, splitting
// large inputs across requests.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
	maxBatch  int
}

// NewOpenAIEmbedder creates an embedder for model. An empty apiKey falls back
// to OPENAI_API_KEY. A dimension of 0 keeps the model's native size.
func NewOpenAIEmbedder(apiKey, model string, dimension int, opts ...option.RequestOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = "text-embedding-3-small"
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIEmbedder{
		client:    openai.NewClient(opts...),
		model:     model,
		dimension: dimension,
		maxBatch:  maxInputsPerRequest,
	}, nil
}

func (e *OpenAIEmbedder) GetModel() string {
	return e.model
}

func (e *OpenAIEmbedder) GetDimension() int {
	return e.dimension
}

// Embed returns one record per text in input order. A response that skips,
// repeats or misnumbers an input fails with ErrEmbeddingFailed.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}

	records := make([]EmbeddingRecord, 0, len(texts))
	for start := 0; start < len(texts); start += e.maxBatch {
		end := min(start+e.maxBatch, len(texts))

		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for _, r := range batch {
			r.Index += start
			records = append(records, r)
		}
	}
	return records, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	params := openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	vectors := make([]indexedVector, len(resp.Data))
	for i, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = indexedVector{index: int(data.Index), vector: vec}
	}
	return collectRecords(texts, e.model, e.dimension, vectors)
}

// indexedVector is one provider result before it is matched to its input.
type indexedVector struct {
	index  int
	vector []float32
}

// collectRecords places provider results back in input order. Every input
// must receive exactly one vector, of the expected dimension when one is set.
func collectRecords(texts []string, model string, dimension int, vectors []indexedVector) ([]EmbeddingRecord, error) {
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(texts), len(vectors))
	}

	records := make([]EmbeddingRecord, len(texts))
	seen := make([]bool, len(texts))
	for _, v := range vectors {
		if v.index < 0 || v.index >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range for %d inputs", ErrEmbeddingFailed, v.index, len(texts))
		}
		if seen[v.index] {
			return nil, fmt.Errorf("%w: duplicate embedding for input %d", ErrEmbeddingFailed, v.index)
		}
		if dimension > 0 && len(v.vector) != dimension {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, want %d", ErrEmbeddingFailed, v.index, len(v.vector), dimension)
		}
		seen[v.index] = true
		records[v.index] = EmbeddingRecord{
			Text:      texts[v.index],
			Embedding: v.vector,
			Index:     v.index,
			Model:     model,
		}
	}
	return records, nil
}
