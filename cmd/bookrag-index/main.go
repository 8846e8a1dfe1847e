package main

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookrag/internal/chunker"
	"bookrag/internal/config"
	"bookrag/internal/domain"
	"bookrag/internal/llm"
)

// Offline index builder: chunk the source corpus, embed every chunk,
// and persist the records the server loads at startup.
func main() {
	_ = godotenv.Load()

	var cfgPath, outPath string
	var parallelism int
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.StringVar(&outPath, "out", "", "Output path (defaults to index.path from config)")
	flag.IntVar(&parallelism, "parallelism", 8, "Concurrent embedding calls")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: bookrag-index [--config=config.yaml] [--out=vector_store.json] file1.txt [file2.txt ...]")
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var cfg *config.AppConfig
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if outPath == "" {
		outPath = cfg.Index.Path
	}

	client, err := llm.NewClient(llm.Config{
		BaseURL:        cfg.Model.BaseURL,
		APIKeyEnv:      cfg.Model.APIKeyEnv,
		APIVersion:     cfg.Model.APIVersion,
		ChatModel:      cfg.Model.ChatModel,
		EmbeddingModel: cfg.Model.EmbeddingModel,
		Timeout:        time.Duration(cfg.Model.TimeoutSecs) * time.Second,
	})
	if err != nil {
		logger.Fatal("model client init failed", zap.Error(err))
	}

	splitter := chunker.NewSplitter(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	var chunks []chunker.Chunk
	for _, pattern := range inputs {
		matches, _ := filepath.Glob(pattern)
		if matches == nil {
			matches = []string{pattern}
		}
		for _, path := range matches {
			if !strings.HasSuffix(strings.ToLower(path), ".txt") {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Fatal("failed to read document", zap.String("path", path), zap.Error(err))
			}
			chunks = append(chunks, splitter.Split(path, string(data))...)
		}
	}
	if len(chunks) == 0 {
		logger.Fatal("no .txt documents found")
	}
	logger.Info("corpus chunked", zap.Int("chunks", len(chunks)))

	passages := make([]domain.Passage, len(chunks))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(parallelism)
	for i, ch := range chunks {
		g.Go(func() error {
			vec, err := client.Embed(ctx, ch.Text)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			passages[i] = domain.Passage{
				ID:        fmt.Sprintf("%s:%d", hashString(ch.Source), ch.Index),
				Content:   ch.Text,
				Embedding: vec,
				Metadata: map[string]any{
					"source": ch.Source,
					"start":  ch.Start,
					"end":    ch.End,
				},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Fatal("embedding failed", zap.Error(err))
	}

	data, err := json.MarshalIndent(passages, "", " ")
	if err != nil {
		logger.Fatal("failed to encode index", zap.Error(err))
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		logger.Fatal("failed to write index", zap.Error(err))
	}
	logger.Info("index written", zap.String("path", outPath), zap.Int("passages", len(passages)))
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
