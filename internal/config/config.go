package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds settings for the inbound HTTP endpoint.
type ServerConfig struct {
	Addr               string `yaml:"addr"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs"`
}

// ModelConfig configures the hosted chat-completion and embedding models.
// The API key is read from the environment, never from the file.
type ModelConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	APIVersion     string  `yaml:"api_version,omitempty"`
	ChatModel      string  `yaml:"chat_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSecs    int     `yaml:"timeout_secs"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// IndexConfig locates the prebuilt passage index and sets retrieval depth.
type IndexConfig struct {
	Path  string      `yaml:"path"`
	TopK  int         `yaml:"top_k"`
	Store StoreConfig `yaml:"store"`
}

// ChunkerConfig configures how the index builder splits source text.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// OpenLibraryConfig holds the lookup API endpoints.
type OpenLibraryConfig struct {
	BookURL   string `yaml:"book_url"`
	AuthorURL string `yaml:"author_url"`
}

// ImageConfig configures the image-generation endpoint.
type ImageConfig struct {
	URL     string `yaml:"url"`
	Size    string `yaml:"size"`
	Quality string `yaml:"quality"`
	Style   string `yaml:"style"`
}

// ToolsConfig configures the external lookup tools.
type ToolsConfig struct {
	TimeoutSecs int               `yaml:"timeout_secs"`
	OpenLibrary OpenLibraryConfig `yaml:"openlibrary"`
	Image       ImageConfig       `yaml:"image"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	Index   IndexConfig   `yaml:"index"`
	Chunker ChunkerConfig `yaml:"chunker"`
	Tools   ToolsConfig   `yaml:"tools"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/bookrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/bookrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports configuration the process cannot serve without.
// Called at startup; a failure here is fatal.
func (cfg *AppConfig) Validate() error {
	if cfg.Model.APIKeyEnv == "" {
		return errors.New("model.api_key_env is required")
	}
	if os.Getenv(cfg.Model.APIKeyEnv) == "" {
		return fmt.Errorf("missing API key in env %s", cfg.Model.APIKeyEnv)
	}
	if cfg.Model.ChatModel == "" {
		return errors.New("model.chat_model is required")
	}
	if cfg.Model.EmbeddingModel == "" {
		return errors.New("model.embedding_model is required")
	}
	if cfg.Index.Store.Type == "qdrant" && cfg.Index.Store.Qdrant == nil {
		return errors.New("index.store.qdrant config missing")
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bookrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 30
	}
	if cfg.Model.BaseURL == "" {
		cfg.Model.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model.APIKeyEnv == "" {
		cfg.Model.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Model.ChatModel == "" {
		cfg.Model.ChatModel = "gpt-4o-mini"
	}
	if cfg.Model.EmbeddingModel == "" {
		cfg.Model.EmbeddingModel = "text-embedding-ada-002"
	}
	if cfg.Model.TimeoutSecs == 0 {
		cfg.Model.TimeoutSecs = 30
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "vector_store.json"
	}
	if cfg.Index.TopK == 0 {
		cfg.Index.TopK = 4
	}
	if cfg.Index.Store.Type == "" {
		cfg.Index.Store.Type = "memory"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = 200
	}
	if cfg.Tools.TimeoutSecs == 0 {
		cfg.Tools.TimeoutSecs = 15
	}
	if cfg.Tools.OpenLibrary.BookURL == "" {
		cfg.Tools.OpenLibrary.BookURL = "https://openlibrary.org/search.json"
	}
	if cfg.Tools.OpenLibrary.AuthorURL == "" {
		cfg.Tools.OpenLibrary.AuthorURL = "https://openlibrary.org/search/authors.json"
	}
	if cfg.Tools.Image.Size == "" {
		cfg.Tools.Image.Size = "1024x1024"
	}
	if cfg.Tools.Image.Quality == "" {
		cfg.Tools.Image.Quality = "standard"
	}
	if cfg.Tools.Image.Style == "" {
		cfg.Tools.Image.Style = "vivid"
	}
}
