package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VERBATIM_SIMILARITY_THRESHOLD", "VERBATIM_TOP_K", "VERBATIM_MIN_QUOTE_LENGTH",
		"VERBATIM_INDEX_BACKEND", "VERBATIM_LLM_PROVIDER", "VERBATIM_LLM_MODEL",
		"VERBATIM_EMBEDDING_PROVIDER", "VERBATIM_EMBEDDING_MODEL",
		"MILVUS_ADDRESS", "MILVUS_DIMENSION", "REDIS_ADDR", "PORT", "OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "verbatim.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, 0.28, cfg.Answer.SimilarityThreshold)
	assert.Equal(t, 4, cfg.Answer.TopK)
	assert.Equal(t, 10, cfg.Answer.MinQuoteLength)
	assert.Equal(t, "memory", cfg.Knowledge.Backend)
	assert.Equal(t, "8080", cfg.Server.Port)

	timeout, err := cfg.RequestTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[answer]
similarity_threshold = 0.75
top_k = 2
search_k = 6
min_quote_length = 12

[knowledge]
manifest = "kb/chunks.json"

[llm]
provider = "mock"
model = "none"

[cache]
redis_addr = "localhost:6379"
ttl = "1h"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.Answer.SimilarityThreshold)
	assert.Equal(t, 2, cfg.Answer.TopK)
	assert.Equal(t, 6, cfg.Answer.SearchDepth())
	assert.Equal(t, 12, cfg.Answer.MinQuoteLength)
	assert.Equal(t, "kb/chunks.json", cfg.Knowledge.Manifest)
	assert.Equal(t, "data/vectors.json", cfg.Knowledge.Vectors, "unset keys keep defaults")
	assert.Equal(t, "mock", cfg.LLM.Provider)

	cache, err := cfg.CacheSettings()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cache.RedisAddr)
	assert.Equal(t, time.Hour, cache.TTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("VERBATIM_SIMILARITY_THRESHOLD", "0.5")
	t.Setenv("VERBATIM_TOP_K", "3")
	t.Setenv("VERBATIM_MIN_QUOTE_LENGTH", "15")
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(writeConfig(t, "[answer]\nsimilarity_threshold = 0.9\n"))
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Answer.SimilarityThreshold)
	assert.Equal(t, 3, cfg.Answer.TopK)
	assert.Equal(t, 15, cfg.Answer.MinQuoteLength)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "sk-env", cfg.Embedding.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "bad toml", body: "[answer\n"},
		{name: "threshold out of range", body: "[answer]\nsimilarity_threshold = 2.0\n"},
		{name: "zero top_k", body: "[answer]\ntop_k = 0\n"},
		{name: "unknown backend", body: "[knowledge]\nbackend = \"faiss\"\n"},
		{name: "unknown llm", body: "[llm]\nprovider = \"bard\"\n"},
		{name: "bad ttl", body: "[cache]\nttl = \"forever\"\n"},
		{name: "bad timeout", body: "[server]\nrequest_timeout = \"soon\"\n"},
		{name: "milvus dimension mismatch", body: "[knowledge]\nbackend = \"milvus\"\n[milvus]\ndimension = 768\n"},
		{name: "bad env int", body: "", env: map[string]string{"VERBATIM_TOP_K": "four"}},
		{name: "bad env float", body: "", env: map[string]string{"VERBATIM_SIMILARITY_THRESHOLD": "high"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDefault_IsValid(t *testing.T) {
	clearEnv(t)
	assert.NoError(t, Default().Validate())
}
