package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bookrag/internal/config"
	"bookrag/internal/domain"
	"bookrag/internal/index"
	"bookrag/internal/llm"
	"bookrag/internal/memory"
	"bookrag/internal/router"
	"bookrag/internal/server"
	"bookrag/internal/service"
	"bookrag/internal/tools"
	memstore "bookrag/internal/vectorstore/memory"
	"bookrag/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/bookrag/config.yaml if not provided)")
	flag.Parse()

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

	client, err := llm.NewClient(llm.Config{
		BaseURL:        cfg.Model.BaseURL,
		APIKeyEnv:      cfg.Model.APIKeyEnv,
		APIVersion:     cfg.Model.APIVersion,
		ChatModel:      cfg.Model.ChatModel,
		EmbeddingModel: cfg.Model.EmbeddingModel,
		Temperature:    cfg.Model.Temperature,
		Timeout:        time.Duration(cfg.Model.TimeoutSecs) * time.Second,
	})
	if err != nil {
		logger.Fatal("model client init failed", zap.Error(err))
	}

	var store domain.VectorStore
	switch cfg.Index.Store.Type {
	case "memory", "":
		store = memstore.NewStore()
	case "qdrant":
		if cfg.Index.Store.Qdrant == nil {
			logger.Fatal("qdrant config missing")
		}
		store = qdrant.NewStore(qdrant.Config{
			URL:        cfg.Index.Store.Qdrant.URL,
			APIKey:     cfg.Index.Store.Qdrant.APIKey,
			Collection: cfg.Index.Store.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Index.Store.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		logger.Fatal("unknown vector store", zap.String("type", cfg.Index.Store.Type))
	}

	ix := index.New(client, store, cfg.Index.TopK)
	if err := ix.LoadFile(cfg.Index.Path); err != nil {
		logger.Fatal("failed to load passage index", zap.Error(err))
	}
	logger.Info("passage index loaded", zap.Int("passages", ix.Len()), zap.String("path", cfg.Index.Path))

	toolTimeout := time.Duration(cfg.Tools.TimeoutSecs) * time.Second
	library := tools.NewOpenLibraryClient(tools.OpenLibraryConfig{
		BookURL:   cfg.Tools.OpenLibrary.BookURL,
		AuthorURL: cfg.Tools.OpenLibrary.AuthorURL,
		Timeout:   toolTimeout,
	})
	registry := tools.NewRegistry(
		tools.NewBookSearchTool(library),
		tools.NewAuthorSearchTool(library),
		tools.NewImageGenerationTool(tools.ImageConfig{
			URL:     cfg.Tools.Image.URL,
			Size:    cfg.Tools.Image.Size,
			Quality: cfg.Tools.Image.Quality,
			Style:   cfg.Tools.Image.Style,
			Timeout: toolTimeout,
		}),
	)

	svc := service.New(client, ix, router.New(client, registry, logger), memory.NewStore(), logger)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.New(svc, time.Duration(cfg.Server.RequestTimeoutSecs)*time.Second, logger).Handler(),
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown did not complete cleanly", zap.Error(err))
	}
}
