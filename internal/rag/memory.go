package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryStore is a brute-force cosine index kept in process memory and
// persisted as a JSON vector file. Ties are ordered by chunk id.
type MemoryStore struct {
	mu      sync.RWMutex
	records []ChunkRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadMemoryStore reads a vector file written by Save.
func LoadMemoryStore(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vector file '%s': %w", path, err)
	}

	var records []ChunkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse vector file '%s': %w", path, err)
	}

	return &MemoryStore{records: records}, nil
}

// Save writes all records to path as JSON.
func (s *MemoryStore) Save(path string) error {
	s.mu.RLock()
	data, err := json.Marshal(s.records)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode vectors: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create vector directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Insert adds records, replacing any with the same chunk id.
func (s *MemoryStore) Insert(ctx context.Context, records []ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos := make(map[string]int, len(s.records))
	for i, r := range s.records {
		pos[r.ChunkID] = i
	}
	for _, r := range records {
		if i, ok := pos[r.ChunkID]; ok {
			s.records[i] = r
			continue
		}
		pos[r.ChunkID] = len(s.records)
		s.records = append(s.records, r)
	}
	return nil
}

// Search returns the k records most similar to queryVector.
func (s *MemoryStore) Search(ctx context.Context, queryVector []float32, k int) ([]IndexHit, error) {
	if k <= 0 {
		return []IndexHit{}, nil
	}

	s.mu.RLock()
	hits := make([]IndexHit, 0, len(s.records))
	for _, r := range s.records {
		hits = append(hits, IndexHit{
			ChunkID:    r.ChunkID,
			Similarity: cosine(queryVector, r.Embedding),
		})
	}
	s.mu.RUnlock()

	SortIndexHits(hits)

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Reset drops all records.
func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// SortIndexHits orders hits by similarity descending, then chunk id ascending.
func SortIndexHits(hits []IndexHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
}

// cosine returns 0 for mismatched or zero vectors.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
