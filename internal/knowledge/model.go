// Package knowledge holds the immutable chunk store that every query reads from,
// together with the offline helpers that turn a knowledge file into chunks.
package knowledge

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateChunkID = errors.New("duplicate chunk id")
	ErrEmptyChunkID     = errors.New("chunk id cannot be empty")
	ErrManifestInvalid  = errors.New("invalid chunk manifest")
)

// Chunk is a unit of knowledge-base text with a stable identifier.
type Chunk struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	SourceLabel string `json:"source_label,omitempty"`
}

// Store is the read-only set of chunks loaded at startup.
// It has no write path, so it is safe to share across goroutines without locking.
type Store struct {
	chunks []Chunk
	byID   map[string]int
}

// NewStore copies chunks into a new store. Ids must be unique and non-empty.
func NewStore(chunks []Chunk) (*Store, error) {
	s := &Store{
		chunks: make([]Chunk, len(chunks)),
		byID:   make(map[string]int, len(chunks)),
	}
	copy(s.chunks, chunks)

	for i, ch := range s.chunks {
		if ch.ID == "" {
			return nil, fmt.Errorf("%w: chunk at position %d", ErrEmptyChunkID, i)
		}
		if _, exists := s.byID[ch.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateChunkID, ch.ID)
		}
		s.byID[ch.ID] = i
	}

	return s, nil
}

// Get returns a reference to the stored chunk. Callers must not mutate it.
func (s *Store) Get(id string) (*Chunk, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.chunks[i], true
}

// Chunks returns a copy of all chunks in manifest order.
func (s *Store) Chunks() []Chunk {
	if s == nil {
		return nil
	}
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Len returns the number of chunks.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.chunks)
}
