package rag

import (
	"context"
	"errors"

	"github.com/Yates-Labs/verbatim/internal/knowledge"
)

// ErrRetrievalUnavailable marks a failure of the embedder or the vector index.
// It is an infrastructure fault, never a refusal.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// Hit is one retrieved chunk with its similarity to the query (higher is closer).
// Chunk points into the knowledge store, which owns it.
type Hit struct {
	Chunk      *knowledge.Chunk
	Similarity float64
}

// ChunkID returns the id of the hit's chunk, or "" for a hit without a chunk.
func (h Hit) ChunkID() string {
	if h.Chunk == nil {
		return ""
	}
	return h.Chunk.ID
}

// IndexHit is the raw (chunk_id, similarity) pair returned by a vector index.
type IndexHit struct {
	ChunkID    string  `json:"chunk_id"`
	Similarity float64 `json:"similarity"`
}

// ChunkRecord is a chunk with its embedding, ready for insertion into an index.
type ChunkRecord struct {
	ChunkID     string    `json:"chunk_id"`
	SourceLabel string    `json:"source_label,omitempty"`
	Embedding   []float32 `json:"embedding"`
}

// Index is the nearest-neighbour search over chunk embeddings.
// Results are the closest k by the index's metric, closest first.
type Index interface {
	Search(ctx context.Context, queryVector []float32, k int) ([]IndexHit, error)
}

// VectorStore is an Index that can also be loaded by the offline index command.
type VectorStore interface {
	Index

	// Insert adds chunk records to the store
	Insert(ctx context.Context, records []ChunkRecord) error

	// Reset removes every record so a rebuilt manifest starts from a clean index
	Reset(ctx context.Context) error

	// Count returns the number of stored records
	Count(ctx context.Context) (int64, error)

	// Close releases resources and closes connections
	Close() error
}

// IndexOptions provides configuration for chunk indexing
type IndexOptions struct {
	// BatchSize determines how many chunks to embed at once
	BatchSize int

	// ForceReindex clears the store before inserting
	ForceReindex bool
}
