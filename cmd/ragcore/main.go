// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Command ragcore wires the retrieval-augmented-generation core into a
// single runnable process: it loads configuration, connects to Redis,
// Qdrant and SQLite, constructs the provider stack, and runs the document
// pipeline consumer alongside a query orchestrator ready to serve requests.
// There is no HTTP surface here; wiring an API is a collaborator concern.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/northbound/ragcore/internal/bus"
	"github.com/northbound/ragcore/internal/cache"
	"github.com/northbound/ragcore/internal/config"
	"github.com/northbound/ragcore/internal/convstore"
	"github.com/northbound/ragcore/internal/docpipeline"
	"github.com/northbound/ragcore/internal/embedengine"
	"github.com/northbound/ragcore/internal/logging"
	"github.com/northbound/ragcore/internal/orchestrator"
	"github.com/northbound/ragcore/internal/providers"
	"github.com/northbound/ragcore/internal/queryopt"
	"github.com/northbound/ragcore/internal/store"
	"github.com/northbound/ragcore/internal/tenantlimit"
	"github.com/northbound/ragcore/internal/vectorindex"
)

// localFileReader implements docpipeline.DocumentReader by reading a
// document's bytes straight off local disk, keyed by storage ref as a file
// path. Real deployments hand the pipeline a collaborator backed by
// whatever blob store they use; this is the minimal stand-in so the
// process is runnable standalone.
type localFileReader struct{}

func (localFileReader) ReadDocument(ctx context.Context, storageRef string) ([]byte, error) {
	return os.ReadFile(storageRef)
}

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	logFile := flag.String("log-file", "", "optional path to a log file (stdout is always used)")
	flag.Parse()

	if _, err := logging.Init(*logFile); err != nil {
		panic(err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Errorf("ragcore: failed to load configuration: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logging.Warnf("ragcore: redis unreachable at startup (%v); caches and bus will degrade until it recovers", err)
	}

	qdrantConn, err := grpc.NewClient(cfg.Qdrant.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logging.Errorf("ragcore: failed to dial qdrant at %s: %v", cfg.Qdrant.Addr, err)
		os.Exit(1)
	}
	index, err := vectorindex.NewQdrantIndex(qdrantConn)
	if err != nil {
		logging.Errorf("ragcore: failed to build vector index: %v", err)
		os.Exit(1)
	}

	relStore, err := store.NewSQLiteStore(cfg.SQLite.Path)
	if err != nil {
		logging.Errorf("ragcore: failed to open sqlite store at %s: %v", cfg.SQLite.Path, err)
		os.Exit(1)
	}

	embedProvider, err := buildEmbeddingProvider(cfg)
	if err != nil {
		logging.Errorf("ragcore: failed to build embedding provider: %v", err)
		os.Exit(1)
	}
	chatProvider, err := buildChatProvider(cfg)
	if err != nil {
		logging.Errorf("ragcore: failed to build chat provider: %v", err)
		os.Exit(1)
	}

	embeddingCache := cache.NewEmbeddingCache(
		cache.NewRedisStore(redisClient),
		cfg.Embedding.L1CacheSize,
		time.Duration(cfg.Embedding.CacheTTLSeconds)*time.Second,
	)
	responseCache := cache.NewResponseCache(cache.NewRedisStore(redisClient), time.Duration(cfg.ResponseCacheTTLSec)*time.Second)

	embedder := embedengine.New(embedengine.Config{
		Provider:             embedProvider,
		Index:                index,
		Cache:                embeddingCache,
		BatchSize:            cfg.Embedding.BatchSize,
		PerTenantConcurrency: cfg.Embedding.PerTenantConcurrency,
	})

	messageBus := bus.NewDegradingBus(redisClient)

	conversations := convstore.New(redisClient, convstore.Config{
		MaxHistory:    cfg.Conversation.MaxHistory,
		TTL:           time.Duration(cfg.Conversation.TTLHours) * time.Hour,
		EnableContext: cfg.Conversation.EnableContext,
	})

	pipeline := docpipeline.New(docpipeline.Config{
		Bus:      messageBus,
		Store:    relStore,
		Reader:   localFileReader{},
		Embedder: embedder,
		Limiter:  tenantlimit.New(cfg.Embedding.PerTenantConcurrency),
	})

	orch := orchestrator.New(orchestrator.Config{
		ResponseCache: responseCache,
		Conversations: conversations,
		Embedder:      embedder,
		Index:         index,
		Chat:          chatProvider,
		QueryOptions: queryopt.Options{
			Enabled:         cfg.QueryOptimization.Enabled,
			MinLength:       cfg.QueryOptimization.MinLength,
			ExpandAcronyms:  cfg.QueryOptimization.ExpandAcronyms,
			RemoveStopwords: cfg.QueryOptimization.RemoveStopwords,
		},
		DefaultMaxTokens:    cfg.RAG.MaxTokens,
		DefaultThreshold:    cfg.RAG.RelevanceThreshold,
		IncludeMetadata:     cfg.RAG.IncludeMetadata,
		DefaultTimeout:      time.Duration(cfg.ChatProvider.TimeoutSeconds) * time.Second,
		ConversationWindow:  cfg.Conversation.ContextWindow,
	})
	_ = orch // the query surface is consumed by whatever API collaborator a deployment wires in

	health := orch.CheckHealth(ctx)
	logging.Printf("ragcore: startup health: vectorIndex=%v embeddingProvider=%v chatProvider=%v", health.VectorIndex, health.EmbeddingProvider, health.ChatProvider)

	logging.Printf("ragcore: starting document pipeline consumer")
	if err := pipeline.Run(ctx); err != nil {
		logging.Errorf("ragcore: pipeline exited: %v", err)
	}
	logging.Printf("ragcore: shutting down")
}

func buildEmbeddingProvider(cfg *config.Config) (providers.EmbeddingProvider, error) {
	primary, err := providers.NewEmbeddingProvider(providers.EmbeddingProviderConfig{
		Type:    cfg.EmbeddingProvider.Primary,
		APIKey:  cfg.EmbeddingProvider.APIKey,
		Model:   cfg.EmbeddingProvider.Model,
		BaseURL: cfg.EmbeddingProvider.OllamaBaseURL,
	})
	if err != nil {
		return nil, err
	}
	if cfg.EmbeddingProvider.Fallback == "" {
		return primary, nil
	}
	fallback, err := providers.NewEmbeddingProvider(providers.EmbeddingProviderConfig{
		Type:    cfg.EmbeddingProvider.Fallback,
		APIKey:  cfg.EmbeddingProvider.APIKey,
		Model:   cfg.EmbeddingProvider.FallbackModel,
		BaseURL: cfg.EmbeddingProvider.OllamaBaseURL,
	})
	if err != nil {
		return nil, err
	}
	return providers.NewFallbackEmbeddingProvider(primary, fallback), nil
}

func buildChatProvider(cfg *config.Config) (providers.ChatStreamingProvider, error) {
	primary, err := providers.NewChatProvider(providers.ChatProviderConfig{
		Type:    cfg.ChatProvider.Primary,
		APIKey:  cfg.ChatProvider.APIKey,
		Model:   cfg.ChatProvider.Model,
		BaseURL: cfg.ChatProvider.OllamaBaseURL,
	})
	if err != nil {
		return nil, err
	}
	if cfg.ChatProvider.Fallback == "" {
		return primary, nil
	}
	fallback, err := providers.NewChatProvider(providers.ChatProviderConfig{
		Type:    cfg.ChatProvider.Fallback,
		APIKey:  cfg.ChatProvider.APIKey,
		Model:   cfg.ChatProvider.FallbackModel,
		BaseURL: cfg.ChatProvider.OllamaBaseURL,
	})
	if err != nil {
		return nil, err
	}
	return providers.NewFallbackChatProvider(primary, fallback), nil
}
