package rag

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/Yates-Labs/verbatim/internal/knowledge"
)

// Retriever embeds a question, searches the index and hydrates hits from the chunk store.
type Retriever struct {
	embedder Embedder
	index    Index
	store    *knowledge.Store
}

// NewRetriever creates a new Retriever instance.
func NewRetriever(embedder Embedder, index Index, store *knowledge.Store) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("index cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("chunk store cannot be nil")
	}

	return &Retriever{
		embedder: embedder,
		index:    index,
		store:    store,
	}, nil
}

// Retrieve returns up to k hits for query, ordered by similarity descending and
// chunk id ascending. An empty store yields no hits without touching the index.
// Embedder and index failures are wrapped in ErrRetrievalUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Hit, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if r.store.Len() == 0 {
		return []Hit{}, nil
	}

	records, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %v", ErrRetrievalUnavailable, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no embedding generated for query", ErrRetrievalUnavailable)
	}

	indexHits, err := r.index.Search(ctx, records[0].Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	return r.hydrate(indexHits), nil
}

// hydrate resolves chunk ids against the store, dropping unknown or repeated ids.
func (r *Retriever) hydrate(indexHits []IndexHit) []Hit {
	hits := make([]Hit, 0, len(indexHits))
	seen := make(map[string]struct{}, len(indexHits))

	for _, ih := range indexHits {
		if _, dup := seen[ih.ChunkID]; dup {
			continue
		}
		ch, ok := r.store.Get(ih.ChunkID)
		if !ok {
			log.Printf("[Retriever] Warning: index returned unknown chunk %q, skipping", ih.ChunkID)
			continue
		}
		seen[ih.ChunkID] = struct{}{}
		hits = append(hits, Hit{Chunk: ch, Similarity: ih.Similarity})
	}

	SortHits(hits)
	return hits
}

// SortHits orders hits by similarity descending, then chunk id ascending.
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID() < hits[j].ChunkID()
	})
}
