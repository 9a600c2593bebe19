package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Yates-Labs/verbatim/internal/config"
	"github.com/Yates-Labs/verbatim/internal/knowledge"
	"github.com/Yates-Labs/verbatim/internal/llm"
	"github.com/Yates-Labs/verbatim/internal/rag"
)

// newEmbeddingServer serves an OpenAI-compatible /v1/embeddings endpoint
// returning a 2-dimensional vector derived from each input's length.
func newEmbeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data := make([]map[string]any, len(req.Input))
		for i, text := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{1, float32(len(text) % 7)},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 0, "total_tokens": 0},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// testRuntimeConfig keeps every file under a temp dir and needs no API keys.
func testRuntimeConfig(t *testing.T, embeddingURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Knowledge.Manifest = filepath.Join(dir, "chunks.json")
	cfg.Knowledge.Vectors = filepath.Join(dir, "vectors.json")
	cfg.Knowledge.ChunkSize = 40
	cfg.Knowledge.ChunkOverlap = 0
	cfg.Embedding = rag.EmbedderConfig{
		Provider:  rag.ProviderOllama,
		Model:     "nomic-embed-text",
		Dimension: 2,
		BaseURL:   embeddingURL,
	}
	cfg.LLM = llm.LLMConfig{Provider: llm.ProviderMock, Model: "mock"}
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestOpen_MissingManifest(t *testing.T) {
	cfg := testRuntimeConfig(t, "http://127.0.0.1:1")

	if _, err := Open(context.Background(), cfg); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestOpen_MissingVectorFile(t *testing.T) {
	cfg := testRuntimeConfig(t, "http://127.0.0.1:1")
	chunks := []knowledge.Chunk{{ID: "chunk_0", Text: "We deliver within Abuja only.", SourceLabel: "faq.txt"}}
	if err := knowledge.WriteManifest(cfg.Knowledge.Manifest, "faq.txt", chunks); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	rt, err := Open(context.Background(), cfg)
	if err == nil {
		rt.Close()
		t.Fatal("expected Open to fail without a vector file")
	}
	if !errors.Is(err, ErrIndexNotBuilt) {
		t.Errorf("expected ErrIndexNotBuilt, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected the missing file to be reported, got %v", err)
	}
}

func TestOpen_EmptyIndex(t *testing.T) {
	cfg := testRuntimeConfig(t, "http://127.0.0.1:1")
	chunks := []knowledge.Chunk{{ID: "chunk_0", Text: "We deliver within Abuja only.", SourceLabel: "faq.txt"}}
	if err := knowledge.WriteManifest(cfg.Knowledge.Manifest, "faq.txt", chunks); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	if err := rag.NewMemoryStore().Save(cfg.Knowledge.Vectors); err != nil {
		t.Fatalf("failed to write vectors: %v", err)
	}

	if _, err := Open(context.Background(), cfg); !errors.Is(err, ErrIndexNotBuilt) {
		t.Errorf("expected ErrIndexNotBuilt, got %v", err)
	}
}

func TestBuildIndex_MissingDocument(t *testing.T) {
	cfg := testRuntimeConfig(t, "http://127.0.0.1:1")
	if _, err := BuildIndex(context.Background(), cfg, filepath.Join(t.TempDir(), "faq.txt")); err == nil {
		t.Error("expected error for missing document")
	}
}

func TestBuildIndex_ThenOpen(t *testing.T) {
	ctx := context.Background()
	srv := newEmbeddingServer(t)
	cfg := testRuntimeConfig(t, srv.URL)
	doc := filepath.Join(t.TempDir(), "faq.txt")

	writeFile(t, doc, strings.Repeat("We deliver within Abuja only. Orders ship daily. ", 6))
	n, err := BuildIndex(ctx, cfg, doc)
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}
	if n < 3 {
		t.Fatalf("expected several chunks, got %d", n)
	}

	// A shorter document must not leave vectors from the longer one behind
	writeFile(t, doc, "We deliver within Abuja only.")
	n2, err := BuildIndex(ctx, cfg, doc)
	if err != nil {
		t.Fatalf("second BuildIndex failed: %v", err)
	}
	if n2 >= n {
		t.Fatalf("expected fewer chunks on rebuild, got %d then %d", n, n2)
	}

	vectors, err := rag.LoadMemoryStore(cfg.Knowledge.Vectors)
	if err != nil {
		t.Fatalf("failed to load vectors: %v", err)
	}
	if count, _ := vectors.Count(ctx); int(count) != n2 {
		t.Errorf("expected %d vectors after rebuild, got %d", n2, count)
	}

	rt, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rt.Close()

	if rt.Store.Len() != n2 {
		t.Errorf("expected %d chunks, got %d", n2, rt.Store.Len())
	}
	if rt.Model != "mock" {
		t.Errorf("expected mock model, got %s", rt.Model)
	}

	outcome, err := rt.Pipeline.Answer(ctx, "Do you deliver to Lagos?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if outcome.Response.Answer == nil {
		t.Fatalf("expected the mock to quote the only chunk, got reason %v", outcome.Response.Reason)
	}
	if len(outcome.Response.Sources) != 1 || outcome.Response.Sources[0] != "chunk_0" {
		t.Errorf("unexpected sources %v", outcome.Response.Sources)
	}
}
