package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/redis/go-redis/v9"
)

// Supported providers and index backends.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	BackendMemory = "memory"
	BackendMilvus = "milvus"
)

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	Dimension int    `toml:"dimension"`
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
}

// CacheConfig configures the optional Redis embedding cache.
type CacheConfig struct {
	RedisAddr string        `toml:"redis_addr"`
	Password  string        `toml:"password"`
	DB        int           `toml:"db"`
	TTL       time.Duration `toml:"-"`
}

// NewEmbedder builds the configured embedder, wrapped with the Redis cache when enabled.
func NewEmbedder(cfg EmbedderConfig, cache CacheConfig) (Embedder, error) {
	var embedder Embedder

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		var opts []option.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		e, err := NewOpenAIEmbedder(cfg.APIKey, cfg.Model, cfg.Dimension, opts...)
		if err != nil {
			return nil, err
		}
		embedder = e
	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		embedder = NewCompatEmbedder(cfg.APIKey, baseURL, cfg.Model, cfg.Dimension)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if cache.RedisAddr == "" {
		return embedder, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cache.RedisAddr,
		Password: cache.Password,
		DB:       cache.DB,
	})
	return NewCachedEmbedder(embedder, client, cache.TTL), nil
}

// NewVectorStore opens an existing index on the configured backend. A missing
// vector file is an error: the index must be built before it is served.
func NewVectorStore(ctx context.Context, backend, vectorsPath string, milvus MilvusConfig) (VectorStore, error) {
	switch strings.ToLower(backend) {
	case BackendMemory, "":
		store, err := LoadMemoryStore(vectorsPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendMilvus:
		return NewMilvusStore(ctx, milvus)
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", backend)
	}
}
