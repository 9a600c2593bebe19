package rag

import (
	"context"
	"fmt"

	"github.com/Yates-Labs/verbatim/internal/knowledge"
)

// DefaultIndexOptions returns sensible defaults for indexing
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		BatchSize:    16, // Batch size for embedding API calls
		ForceReindex: false,
	}
}

// IndexChunks embeds chunks in batches and inserts them into the vector store.
// With ForceReindex the store is cleared first, so neither duplicates nor
// vectors for chunk ids beyond the new manifest survive.
func IndexChunks(
	ctx context.Context,
	chunks []knowledge.Chunk,
	embedder Embedder,
	vectorStore VectorStore,
	opts IndexOptions,
) error {
	if len(chunks) == 0 {
		return nil
	}
	if embedder == nil {
		return fmt.Errorf("embedder cannot be nil")
	}
	if vectorStore == nil {
		return fmt.Errorf("vector store cannot be nil")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultIndexOptions().BatchSize
	}

	if opts.ForceReindex {
		if err := vectorStore.Reset(ctx); err != nil {
			return fmt.Errorf("failed to clear existing vectors: %w", err)
		}
	}

	for batchStart := 0; batchStart < len(chunks); batchStart += opts.BatchSize {
		batchEnd := batchStart + opts.BatchSize
		if batchEnd > len(chunks) {
			batchEnd = len(chunks)
		}
		batch := chunks[batchStart:batchEnd]

		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Text
		}

		embeddingRecords, err := embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings for batch starting at %d: %w", batchStart, err)
		}
		if len(embeddingRecords) != len(batch) {
			return fmt.Errorf("embedder returned %d vectors for batch of %d", len(embeddingRecords), len(batch))
		}

		records := make([]ChunkRecord, len(batch))
		for _, er := range embeddingRecords {
			if er.Index < 0 || er.Index >= len(batch) {
				return fmt.Errorf("embedding index %d out of range for batch starting at %d", er.Index, batchStart)
			}
			ch := batch[er.Index]
			records[er.Index] = ChunkRecord{
				ChunkID:     ch.ID,
				SourceLabel: ch.SourceLabel,
				Embedding:   er.Embedding,
			}
		}

		if err := vectorStore.Insert(ctx, records); err != nil {
			return fmt.Errorf("failed to insert batch starting at %d: %w", batchStart, err)
		}
	}

	return nil
}
