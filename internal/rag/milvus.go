package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Common errors for Milvus operations
var (
	ErrInvalidDimension = errors.New("invalid vector dimension")
	ErrConnectionFailed = errors.New("failed to connect to Milvus")
	ErrInsertFailed     = errors.New("failed to insert records")
	ErrSearchFailed     = errors.New("failed to search vectors")
)

// MilvusConfig holds configuration for Milvus connection and collection
type MilvusConfig struct {
	Address        string `toml:"address"`         // Milvus server address (e.g., "localhost:19530")
	CollectionName string `toml:"collection"`      // Name of the collection
	Dimension      int    `toml:"dimension"`       // Vector dimension (e.g., 1536 for text-embedding-3-small)
	M              int    `toml:"m"`               // HNSW M parameter (default: 16)
	EfConstruction int    `toml:"ef_construction"` // HNSW efConstruction (default: 256)
	Ef             int    `toml:"ef"`              // HNSW search ef (default: 64)
}

// DefaultMilvusConfig returns default configuration from environment variables
func DefaultMilvusConfig() MilvusConfig {
	address := os.Getenv("MILVUS_ADDRESS")
	if address == "" {
		address = "localhost:19530"
	}

	collection := os.Getenv("MILVUS_COLLECTION")
	if collection == "" {
		collection = "verbatim_chunks"
	}

	dimension := 1536
	if v, err := strconv.Atoi(os.Getenv("MILVUS_DIMENSION")); err == nil && v > 0 {
		dimension = v
	}

	return MilvusConfig{
		Address:        address,
		CollectionName: collection,
		Dimension:      dimension,
		M:              16,
		EfConstruction: 256,
		Ef:             64,
	}
}

// MilvusStore implements VectorStore using Milvus with an HNSW cosine index.
// Only chunk ids and vectors live in Milvus; chunk text stays in the manifest.
type MilvusStore struct {
	client client.Client
	config MilvusConfig
}

// NewMilvusStore connects to Milvus and ensures the collection exists with proper schema
func NewMilvusStore(ctx context.Context, config MilvusConfig) (*MilvusStore, error) {
	if config.Dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &MilvusStore{
		client: c,
		config: config,
	}

	if err := store.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return store, nil
}

// ensureCollection creates and loads the collection if it doesn't exist
func (m *MilvusStore) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !has {
		schema := &entity.Schema{
			CollectionName: m.config.CollectionName,
			AutoID:         true,
			Fields: []*entity.Field{
				{
					Name:       "id",
					DataType:   entity.FieldTypeInt64,
					PrimaryKey: true,
					AutoID:     true,
				},
				{
					Name:     "chunk_id",
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": "128",
					},
				},
				{
					Name:     "source_label",
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": "512",
					},
				},
				{
					Name:     "embedding",
					DataType: entity.FieldTypeFloatVector,
					TypeParams: map[string]string{
						"dim": strconv.Itoa(m.config.Dimension),
					},
				},
			},
		}

		if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx, err := entity.NewIndexHNSW(entity.COSINE, m.config.M, m.config.EfConstruction)
		if err != nil {
			return fmt.Errorf("failed to create index config: %w", err)
		}

		if err := m.client.CreateIndex(ctx, m.config.CollectionName, "embedding", idx, false); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

// Insert adds chunk records to Milvus and flushes them
func (m *MilvusStore) Insert(ctx context.Context, records []ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(records))
	labels := make([]string, len(records))
	embeddings := make([][]float32, len(records))

	for i, record := range records {
		if len(record.Embedding) != m.config.Dimension {
			return fmt.Errorf("%w: chunk %s has %d, expected %d",
				ErrInvalidDimension, record.ChunkID, len(record.Embedding), m.config.Dimension)
		}
		chunkIDs[i] = record.ChunkID
		labels[i] = record.SourceLabel
		embeddings[i] = record.Embedding
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnVarChar("source_label", labels),
		entity.NewColumnFloatVector("embedding", m.config.Dimension, embeddings),
	}

	if _, err := m.client.Insert(ctx, m.config.CollectionName, "", columns...); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	if err := m.client.Flush(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to flush data: %w", err)
	}

	return nil
}

// Search performs top-K cosine similarity search
func (m *MilvusStore) Search(ctx context.Context, queryVector []float32, k int) ([]IndexHit, error) {
	if len(queryVector) != m.config.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(queryVector))
	}
	if k <= 0 {
		return []IndexHit{}, nil
	}

	sp, err := entity.NewIndexHNSWSearchParam(m.searchEf(k))
	if err != nil {
		return nil, fmt.Errorf("failed to create search params: %w", err)
	}

	results, err := m.client.Search(
		ctx,
		m.config.CollectionName,
		nil, // partition names
		"",  // no filter
		[]string{"chunk_id"},
		[]entity.Vector{entity.FloatVector(queryVector)},
		"embedding",
		entity.COSINE,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	if len(results) == 0 {
		return []IndexHit{}, nil
	}

	var ids []string
	for _, field := range results[0].Fields {
		if field.Name() == "chunk_id" {
			if col, ok := field.(*entity.ColumnVarChar); ok {
				ids = col.Data()
			}
		}
	}

	hits := make([]IndexHit, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount && i < len(ids); i++ {
		hits = append(hits, IndexHit{
			ChunkID:    ids[i],
			Similarity: float64(results[0].Scores[i]),
		})
	}

	// HNSW order is approximate; re-sort so ties are reproducible
	SortIndexHits(hits)
	return hits, nil
}

func (m *MilvusStore) searchEf(k int) int {
	ef := m.config.Ef
	if ef < k {
		ef = k
	}
	return ef
}

// Reset drops the collection and recreates it empty. Chunk ids are positional,
// so vectors from an older manifest cannot be kept.
func (m *MilvusStore) Reset(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if has {
		if err := m.client.DropCollection(ctx, m.config.CollectionName); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}
	return m.ensureCollection(ctx)
}

// Count returns the collection row count
func (m *MilvusStore) Count(ctx context.Context) (int64, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, m.config.CollectionName)
	if err != nil {
		return 0, fmt.Errorf("failed to get stats: %w", err)
	}

	n, err := strconv.ParseInt(stats["row_count"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected row_count %q: %w", stats["row_count"], err)
	}
	return n, nil
}

// Close releases resources and closes the Milvus connection
func (m *MilvusStore) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
