package rag

import (
	"context"
	"os"
	"testing"
)

// TestMilvusStore_EmptyRecords tests that empty records are handled gracefully (no-op)
func TestMilvusStore_EmptyRecords(t *testing.T) {
	ctx := context.Background()

	// No client: empty operations must return before touching the connection
	store := &MilvusStore{
		config: DefaultMilvusConfig(),
	}

	if err := store.Insert(ctx, []ChunkRecord{}); err != nil {
		t.Errorf("Expected nil for empty records, got: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Expected nil closing store without client, got: %v", err)
	}
}

// TestDefaultMilvusConfig tests default configuration
func TestDefaultMilvusConfig(t *testing.T) {
	t.Setenv("MILVUS_ADDRESS", "")
	t.Setenv("MILVUS_COLLECTION", "")
	t.Setenv("MILVUS_DIMENSION", "")

	config := DefaultMilvusConfig()

	if config.Address != "localhost:19530" {
		t.Errorf("Expected default address, got %s", config.Address)
	}
	if config.CollectionName != "verbatim_chunks" {
		t.Errorf("Expected collection verbatim_chunks, got %s", config.CollectionName)
	}
	if config.Dimension != 1536 {
		t.Errorf("Expected dimension 1536, got %d", config.Dimension)
	}
	if config.M != 16 || config.EfConstruction != 256 || config.Ef != 64 {
		t.Errorf("Unexpected HNSW parameters: %+v", config)
	}
}

func TestDefaultMilvusConfig_Env(t *testing.T) {
	t.Setenv("MILVUS_ADDRESS", "milvus:19530")
	t.Setenv("MILVUS_COLLECTION", "faq")
	t.Setenv("MILVUS_DIMENSION", "768")

	config := DefaultMilvusConfig()
	if config.Address != "milvus:19530" || config.CollectionName != "faq" || config.Dimension != 768 {
		t.Errorf("Environment not applied: %+v", config)
	}

	t.Setenv("MILVUS_DIMENSION", "not-a-number")
	if got := DefaultMilvusConfig().Dimension; got != 1536 {
		t.Errorf("Expected fallback dimension 1536, got %d", got)
	}
}

func TestNewMilvusStore_InvalidDimension(t *testing.T) {
	config := DefaultMilvusConfig()
	config.Dimension = 0
	if _, err := NewMilvusStore(context.Background(), config); err != ErrInvalidDimension {
		t.Errorf("Expected ErrInvalidDimension, got %v", err)
	}
}

// Integration test: Reset, Insert, Search, Reset full workflow
func TestMilvusStore_Integration_FullWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	if os.Getenv("MILVUS_ADDRESS") == "" {
		t.Skip("MILVUS_ADDRESS not set")
	}

	ctx := context.Background()
	config := DefaultMilvusConfig()
	config.Dimension = 4
	config.CollectionName = "verbatim_test_integration"

	store, err := NewMilvusStore(ctx, config)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	err = store.Insert(ctx, []ChunkRecord{
		{ChunkID: "chunk_0", SourceLabel: "faq", Embedding: []float32{1, 0, 0, 0}},
		{ChunkID: "chunk_1", SourceLabel: "faq", Embedding: []float32{0, 1, 0, 0}},
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	hits, err := store.Search(ctx, []float32{1, 0.1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) == 0 || hits[0].ChunkID != "chunk_0" {
		t.Fatalf("Expected chunk_0 first, got %+v", hits)
	}

	if err := store.Insert(ctx, []ChunkRecord{{ChunkID: "bad", Embedding: []float32{1}}}); err == nil {
		t.Error("Expected dimension mismatch error")
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected empty collection after reset, got %d rows", n)
	}
}
