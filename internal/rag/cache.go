package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const embeddingKeyPrefix = "verbatim:embedding:"

// CachedEmbedder keeps query embeddings in Redis.
// Embeddings are deterministic per model, so a cached vector is always valid for its key.
// Cache faults are logged and fall through to the wrapped embedder.
type CachedEmbedder struct {
	inner  Embedder
	client *redis.Client
	ttl    time.Duration
}

// NewCachedEmbedder wraps inner with a Redis cache. A zero ttl keeps entries forever.
func NewCachedEmbedder(inner Embedder, client *redis.Client, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, client: client, ttl: ttl}
}

// GetModel returns the wrapped model identifier
func (c *CachedEmbedder) GetModel() string {
	return c.inner.GetModel()
}

// GetDimension returns the wrapped embedding dimension
func (c *CachedEmbedder) GetDimension() int {
	return c.inner.GetDimension()
}

// Embed serves cached vectors and embeds only the misses, preserving input order.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}

	records := make([]EmbeddingRecord, len(texts))
	var missing []string
	var missingAt []int

	for i, text := range texts {
		vec, ok := c.lookup(ctx, text)
		if !ok {
			missing = append(missing, text)
			missingAt = append(missingAt, i)
			continue
		}
		records[i] = EmbeddingRecord{Text: text, Embedding: vec, Index: i, Model: c.inner.GetModel()}
	}

	if len(missing) == 0 {
		return records, nil
	}

	fresh, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingFailed, len(fresh), len(missing))
	}

	for _, rec := range fresh {
		if rec.Index < 0 || rec.Index >= len(missingAt) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrEmbeddingFailed, rec.Index)
		}
		at := missingAt[rec.Index]
		rec.Index = at
		records[at] = rec
		c.store(ctx, rec.Text, rec.Embedding)
	}

	return records, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return embeddingKeyPrefix + c.inner.GetModel() + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	data, err := c.client.Get(ctx, c.key(text)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("[Embedding Cache] Warning: lookup failed: %v", err)
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		log.Printf("[Embedding Cache] Warning: dropping corrupt entry: %v", err)
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) store(ctx context.Context, text string, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(text), data, c.ttl).Err(); err != nil {
		log.Printf("[Embedding Cache] Warning: store failed: %v", err)
	}
}
