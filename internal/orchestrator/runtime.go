package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"github.com/Yates-Labs/verbatim/internal/config"
	"github.com/Yates-Labs/verbatim/internal/knowledge"
	"github.com/Yates-Labs/verbatim/internal/llm"
	"github.com/Yates-Labs/verbatim/internal/rag"
)

// ErrIndexNotBuilt means the knowledge base has chunks but the vector index
// holds nothing to search. Serving it would refuse every question.
var ErrIndexNotBuilt = errors.New("vector index is empty; run `verbatim index` first")

// Runtime owns the long-lived collaborators behind a Pipeline.
type Runtime struct {
	Pipeline    *Pipeline
	Store       *knowledge.Store
	Embedder    rag.Embedder
	VectorStore rag.VectorStore
	Model       string
}

// Open loads the chunk manifest, connects the embedder, index and LLM from
// cfg and builds the answer pipeline.
func Open(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	store, err := knowledge.LoadManifest(cfg.Knowledge.Manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	log.Printf("[Answer Pipeline] Loaded %d chunks from %s", store.Len(), cfg.Knowledge.Manifest)

	vectorStore, err := rag.NewVectorStore(ctx, cfg.Knowledge.Backend, cfg.Knowledge.Vectors, cfg.Milvus)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrIndexNotBuilt, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	if err := checkIndex(ctx, store, vectorStore); err != nil {
		vectorStore.Close()
		return nil, err
	}

	cache, err := cfg.CacheSettings()
	if err != nil {
		vectorStore.Close()
		return nil, err
	}
	embedder, err := rag.NewEmbedder(cfg.Embedding, cache)
	if err != nil {
		vectorStore.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	retriever, err := rag.NewRetriever(embedder, vectorStore, store)
	if err != nil {
		vectorStore.Close()
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	model, err := llm.NewLLM(cfg.LLM)
	if err != nil {
		vectorStore.Close()
		return nil, fmt.Errorf("failed to create LLM: %w", err)
	}
	generator := llm.NewGenerator(model, cfg.LLM)

	pipeline, err := NewPipeline(cfg.Answer, retriever, generator)
	if err != nil {
		vectorStore.Close()
		return nil, err
	}

	return &Runtime{
		Pipeline:    pipeline,
		Store:       store,
		Embedder:    embedder,
		VectorStore: vectorStore,
		Model:       generator.Model(),
	}, nil
}

// checkIndex fails when there is nothing to search. A count below the chunk
// total is only logged, since retrieval drops ids it cannot hydrate anyway.
func checkIndex(ctx context.Context, store *knowledge.Store, index rag.VectorStore) error {
	n, err := index.Count(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", rag.ErrRetrievalUnavailable, err)
	}
	if n == 0 || store.Len() == 0 {
		return fmt.Errorf("%w (%d chunks, %d vectors)", ErrIndexNotBuilt, store.Len(), n)
	}
	if int(n) != store.Len() {
		log.Printf("[Answer Pipeline] Warning: index holds %d vectors for %d chunks; rerun `verbatim index`", n, store.Len())
	}
	return nil
}

// Close releases the vector store connection.
func (r *Runtime) Close() error {
	if r.VectorStore != nil {
		return r.VectorStore.Close()
	}
	return nil
}

// BuildIndex turns a knowledge document into the chunk manifest and replaces
// the index contents with the new chunk vectors. The memory backend is
// persisted to the vectors path.
func BuildIndex(ctx context.Context, cfg *config.Config, documentPath string) (int, error) {
	text, err := knowledge.LoadDocument(documentPath)
	if err != nil {
		return 0, err
	}

	chunks := knowledge.ChunkText(text, documentPath, cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no text to index in '%s'", documentPath)
	}
	log.Printf("[Answer Pipeline] Indexing %d chunks from %s", len(chunks), documentPath)

	cache, err := cfg.CacheSettings()
	if err != nil {
		return 0, err
	}
	embedder, err := rag.NewEmbedder(cfg.Embedding, cache)
	if err != nil {
		return 0, fmt.Errorf("failed to create embedder: %w", err)
	}

	backend := strings.ToLower(cfg.Knowledge.Backend)
	var vectorStore rag.VectorStore
	if backend == rag.BackendMilvus {
		vectorStore, err = rag.NewVectorStore(ctx, backend, "", cfg.Milvus)
		if err != nil {
			return 0, fmt.Errorf("failed to create vector store: %w", err)
		}
	} else {
		vectorStore = rag.NewMemoryStore()
	}
	defer vectorStore.Close()

	// A rebuilt manifest renumbers chunks, so old vectors never carry over.
	opts := rag.DefaultIndexOptions()
	opts.ForceReindex = true
	if err := rag.IndexChunks(ctx, chunks, embedder, vectorStore, opts); err != nil {
		return 0, fmt.Errorf("failed to index chunks: %w", err)
	}

	if mem, ok := vectorStore.(*rag.MemoryStore); ok {
		if err := mem.Save(cfg.Knowledge.Vectors); err != nil {
			return 0, err
		}
	}
	if err := knowledge.WriteManifest(cfg.Knowledge.Manifest, documentPath, chunks); err != nil {
		return 0, err
	}

	log.Printf("[Answer Pipeline] Successfully indexed %d chunks", len(chunks))
	return len(chunks), nil
}
