package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest is the on-disk form of the chunk store written by the index command.
type Manifest struct {
	Source string          `json:"source,omitempty"`
	Chunks []manifestEntry `json:"chunks"`
}

// manifestEntry accepts either a full chunk object or a bare string,
// so manifests that only list chunk texts still load.
type manifestEntry struct {
	Chunk
	bare bool
}

func (e *manifestEntry) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		e.Chunk = Chunk{Text: text}
		e.bare = true
		return nil
	}
	return json.Unmarshal(data, &e.Chunk)
}

func (e manifestEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Chunk)
}

// NewManifest wraps chunks for writing.
func NewManifest(source string, chunks []Chunk) Manifest {
	entries := make([]manifestEntry, len(chunks))
	for i, ch := range chunks {
		entries[i] = manifestEntry{Chunk: ch}
	}
	return Manifest{Source: source, Chunks: entries}
}

// ToChunks resolves bare entries into chunks with positional ids.
func (m Manifest) ToChunks() []Chunk {
	chunks := make([]Chunk, len(m.Chunks))
	for i, e := range m.Chunks {
		ch := e.Chunk
		if e.bare || ch.ID == "" {
			ch.ID = ChunkID(i)
		}
		if ch.SourceLabel == "" {
			ch.SourceLabel = m.Source
		}
		chunks[i] = ch
	}
	return chunks
}

// LoadManifest reads a manifest file and builds the store from it.
func LoadManifest(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk manifest '%s': %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	return NewStore(m.ToChunks())
}

// WriteManifest writes chunks to path, creating parent directories.
func WriteManifest(path, source string, chunks []Chunk) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(NewManifest(source, chunks), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest '%s': %w", path, err)
	}
	return nil
}
