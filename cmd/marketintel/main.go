package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cvk03/-Market-intelligence-agent/internal/agent"
	"github.com/cvk03/-Market-intelligence-agent/internal/config"
	"github.com/cvk03/-Market-intelligence-agent/internal/dataset"
	"github.com/cvk03/-Market-intelligence-agent/internal/db/redis"
	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
	embcache "github.com/cvk03/-Market-intelligence-agent/internal/embed/cache"
	embopenai "github.com/cvk03/-Market-intelligence-agent/internal/embed/openai"
	genopenai "github.com/cvk03/-Market-intelligence-agent/internal/gateway/openai"
	"github.com/cvk03/-Market-intelligence-agent/internal/index"
	logpkg "github.com/cvk03/-Market-intelligence-agent/internal/logger"
	"github.com/cvk03/-Market-intelligence-agent/internal/metrics"
	"github.com/cvk03/-Market-intelligence-agent/internal/prepare"
	transport "github.com/cvk03/-Market-intelligence-agent/internal/transport/http"
	"github.com/cvk03/-Market-intelligence-agent/internal/version"
)

func main() {
	// Optional .env for local development; real deployments set env directly.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting market intelligence server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_dir", cfg.Index.Dir),
	)

	// Register metrics explicitly (no init())
	metrics.Register()

	embedder := buildEmbedder(cfg, logger)

	idx := index.New(embedder, logger)
	if err := loadOrBuildIndex(context.Background(), idx, cfg, logger); err != nil {
		logger.Fatal("Failed to prepare semantic index", zap.Error(err))
	}
	logger.Info("Semantic index ready", zap.Int("documents", idx.Size()), zap.Int("dim", idx.Dim()))

	gateway := genopenai.NewGateway(&genopenai.Config{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Timeout:     time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Logger:      logger,
	})

	svc := agent.New(idx, gateway, agent.Options{
		SearchK:     cfg.Index.SearchK,
		ContextDocs: cfg.Index.ContextDocs,
	}, logger)

	server := transport.NewServer(svc, idx, cfg.Index.SearchK, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the embedder chain: OpenAI -> Cached (optional).
func buildEmbedder(cfg config.Config, logger *zap.Logger) domain.Embedder {
	base := embopenai.NewEmbedder(&embopenai.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	if !cfg.Cache.Enabled() {
		return base
	}

	store, err := redis.NewStore(redis.Config{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		logger.Warn("Embedding cache unavailable, falling back to direct embedding", zap.Error(err))
		return base
	}

	if err := store.Ping(context.Background()); err != nil {
		logger.Warn("Embedding cache not responding, falling back to direct embedding", zap.Error(err))
		store.Close()
		return base
	}

	logger.Info("Embedding cache enabled",
		zap.Strings("addrs", cfg.Cache.Addrs),
		zap.Int("ttl_hours", cfg.Cache.TTLHours),
	)
	return embcache.New(base, store, time.Duration(cfg.Cache.TTLHours)*time.Hour, logger)
}

// loadOrBuildIndex restores the persisted index, or builds it from the raw
// datasets when no usable artifacts exist.
func loadOrBuildIndex(ctx context.Context, idx *index.Index, cfg config.Config, logger *zap.Logger) error {
	err := idx.Load(cfg.Index.Dir)
	if err == nil {
		logger.Info("Loaded persisted index", zap.String("dir", cfg.Index.Dir))
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrCorruptIndex) {
		return fmt.Errorf("load index: %w", err)
	}
	if errors.Is(err, domain.ErrCorruptIndex) {
		logger.Warn("Persisted index is corrupt, rebuilding", zap.Error(err))
	} else {
		logger.Info("No persisted index, building from datasets")
	}

	rates, err := dataset.LoadRates(cfg.Data.RatesCSV)
	if err != nil {
		return fmt.Errorf("load rates: %w", err)
	}
	claims, err := dataset.LoadClaims(cfg.Data.ClaimsCSV)
	if err != nil {
		return fmt.Errorf("load claims: %w", err)
	}
	filings, err := dataset.LoadFilings(cfg.Data.RegulatoryJSON)
	if err != nil {
		return fmt.Errorf("load filings: %w", err)
	}

	docs := prepare.Documents(rates, claims, filings)
	if err := idx.Build(ctx, docs); err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	if err := idx.Save(cfg.Index.Dir); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	logger.Info("Built and persisted index",
		zap.String("dir", cfg.Index.Dir),
		zap.Int("documents", len(docs)),
	)
	return nil
}
