package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30, cfg.Server.RequestTimeoutSecs)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Model.APIKeyEnv)
	assert.Equal(t, 4, cfg.Index.TopK)
	assert.Equal(t, "memory", cfg.Index.Store.Type)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, "https://openlibrary.org/search.json", cfg.Tools.OpenLibrary.BookURL)
	assert.Equal(t, "1024x1024", cfg.Tools.Image.Size)
}

func TestLoadOverridesKeepUntouchedDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
model:
  chat_model: gpt-4o
index:
  top_k: 8
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "gpt-4o", cfg.Model.ChatModel)
	assert.Equal(t, 8, cfg.Index.TopK)
	assert.Equal(t, "text-embedding-ada-002", cfg.Model.EmbeddingModel)
	assert.Equal(t, 30, cfg.Server.RequestTimeoutSecs)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")
	cfg := defaultConfig()
	cfg.Server.Addr = ":7070"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", loaded.Server.Addr)
}

func TestValidateRequiresAPIKeyInEnv(t *testing.T) {
	cfg := defaultConfig()
	cfg.Model.APIKeyEnv = "BOOKRAG_TEST_KEY"

	require.NoError(t, os.Unsetenv("BOOKRAG_TEST_KEY"))
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOOKRAG_TEST_KEY")

	t.Setenv("BOOKRAG_TEST_KEY", "sk-test")
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresModels(t *testing.T) {
	cfg := defaultConfig()
	cfg.Model.APIKeyEnv = "BOOKRAG_TEST_KEY"
	t.Setenv("BOOKRAG_TEST_KEY", "sk-test")

	cfg.Model.ChatModel = ""
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Model.APIKeyEnv = "BOOKRAG_TEST_KEY"
	cfg.Model.EmbeddingModel = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresQdrantDetails(t *testing.T) {
	cfg := defaultConfig()
	cfg.Model.APIKeyEnv = "BOOKRAG_TEST_KEY"
	t.Setenv("BOOKRAG_TEST_KEY", "sk-test")

	cfg.Index.Store.Type = "qdrant"
	assert.Error(t, cfg.Validate())

	cfg.Index.Store.Qdrant = &QdrantConfig{URL: "http://localhost:6333", Collection: "books"}
	assert.NoError(t, cfg.Validate())
}
