package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Yates-Labs/verbatim/internal/answer"
	"github.com/Yates-Labs/verbatim/internal/knowledge"
	"github.com/Yates-Labs/verbatim/internal/llm"
	"github.com/Yates-Labs/verbatim/internal/rag"
)

// DefaultPath is where the CLI looks for the config file.
const DefaultPath = "config/verbatim.toml"

type KnowledgeConfig struct {
	Manifest     string `toml:"manifest"`
	Vectors      string `toml:"vectors"`
	Backend      string `toml:"backend"`
	ChunkSize    int    `toml:"chunk_size"`
	ChunkOverlap int    `toml:"chunk_overlap"`
}

type CacheConfig struct {
	RedisAddr string `toml:"redis_addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	TTL       string `toml:"ttl"`
}

type ServerConfig struct {
	Port           string   `toml:"port"`
	RequestTimeout string   `toml:"request_timeout"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type Config struct {
	Answer    answer.Config      `toml:"answer"`
	Knowledge KnowledgeConfig    `toml:"knowledge"`
	Embedding rag.EmbedderConfig `toml:"embedding"`
	Milvus    rag.MilvusConfig   `toml:"milvus"`
	Cache     CacheConfig        `toml:"cache"`
	LLM       llm.LLMConfig      `toml:"llm"`
	Server    ServerConfig       `toml:"server"`
}

// Default returns a configuration that runs against OpenAI with the local memory index.
func Default() *Config {
	return &Config{
		Answer: answer.DefaultConfig(),
		Knowledge: KnowledgeConfig{
			Manifest:     "data/chunks.json",
			Vectors:      "data/vectors.json",
			Backend:      rag.BackendMemory,
			ChunkSize:    knowledge.DefaultChunkSize,
			ChunkOverlap: knowledge.DefaultChunkOverlap,
		},
		Embedding: rag.EmbedderConfig{
			Provider:  rag.ProviderOpenAI,
			Model:     "text-embedding-3-small",
			Dimension: 1536,
		},
		Milvus: rag.DefaultMilvusConfig(),
		Cache: CacheConfig{
			TTL: "24h",
		},
		LLM: llm.DefaultLLMConfig(),
		Server: ServerConfig{
			Port:           "8080",
			RequestTimeout: "30s",
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load reads the TOML file at path over the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("VERBATIM_SIMILARITY_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("VERBATIM_SIMILARITY_THRESHOLD: %w", err)
		}
		c.Answer.SimilarityThreshold = f
	}
	if err := envInt("VERBATIM_TOP_K", &c.Answer.TopK); err != nil {
		return err
	}
	if err := envInt("VERBATIM_MIN_QUOTE_LENGTH", &c.Answer.MinQuoteLength); err != nil {
		return err
	}

	envString("VERBATIM_INDEX_BACKEND", &c.Knowledge.Backend)
	envString("VERBATIM_LLM_PROVIDER", &c.LLM.Provider)
	envString("VERBATIM_LLM_MODEL", &c.LLM.Model)
	envString("VERBATIM_EMBEDDING_PROVIDER", &c.Embedding.Provider)
	envString("VERBATIM_EMBEDDING_MODEL", &c.Embedding.Model)
	envString("MILVUS_ADDRESS", &c.Milvus.Address)
	envString("REDIS_ADDR", &c.Cache.RedisAddr)
	envString("PORT", &c.Server.Port)

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.LLM.APIKey == "" && c.LLM.Provider == llm.ProviderOpenAI {
			c.LLM.APIKey = key
		}
		if c.Embedding.APIKey == "" && c.Embedding.Provider == rag.ProviderOpenAI {
			c.Embedding.APIKey = key
		}
	}
	return nil
}

// Validate checks every section and reports the first problem found.
func (c *Config) Validate() error {
	if err := c.Answer.Validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.Knowledge.Backend) {
	case rag.BackendMemory, rag.BackendMilvus:
	default:
		return fmt.Errorf("unknown index backend %q", c.Knowledge.Backend)
	}
	if c.Knowledge.Manifest == "" {
		return fmt.Errorf("knowledge.manifest is required")
	}
	if c.Knowledge.ChunkSize < 1 || c.Knowledge.ChunkOverlap < 0 || c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		return fmt.Errorf("invalid chunking: size %d overlap %d", c.Knowledge.ChunkSize, c.Knowledge.ChunkOverlap)
	}

	switch strings.ToLower(c.Embedding.Provider) {
	case rag.ProviderOpenAI, rag.ProviderOllama:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive")
	}
	if strings.ToLower(c.Knowledge.Backend) == rag.BackendMilvus && c.Milvus.Dimension != c.Embedding.Dimension {
		return fmt.Errorf("milvus.dimension %d does not match embedding.dimension %d", c.Milvus.Dimension, c.Embedding.Dimension)
	}

	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderOpenAI, llm.ProviderOllama, llm.ProviderMock:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}

	if _, err := c.CacheSettings(); err != nil {
		return err
	}
	if _, err := c.RequestTimeout(); err != nil {
		return err
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	return nil
}

// CacheSettings converts the cache section for the embedding cache.
func (c *Config) CacheSettings() (rag.CacheConfig, error) {
	var ttl time.Duration
	if c.Cache.TTL != "" {
		d, err := time.ParseDuration(c.Cache.TTL)
		if err != nil {
			return rag.CacheConfig{}, fmt.Errorf("cache.ttl: %w", err)
		}
		ttl = d
	}
	return rag.CacheConfig{
		RedisAddr: c.Cache.RedisAddr,
		Password:  c.Cache.Password,
		DB:        c.Cache.DB,
		TTL:       ttl,
	}, nil
}

// RequestTimeout is the per-request deadline applied by the HTTP layer (0 = none).
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.Server.RequestTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Server.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("server.request_timeout: %w", err)
	}
	return d, nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
