// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package config loads the recognized options from §6 of the
// specification: context assembly, LLM provider selection, conversation
// bookkeeping, query optimization, and embedding batching. It follows the
// teacher's viper + mapstructure convention (see the drone client's
// LoadConfig), layering defaults, an optional YAML file, and environment
// overrides via .env + AutomaticEnv.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// RedisConfig configures the Redis connection backing the message bus and
// the two TTL caches (C2, C10).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// QdrantConfig configures the gRPC connection to the vector index backend.
type QdrantConfig struct {
	Addr string `mapstructure:"addr"`
}

// SQLiteConfig configures the relational document/chunk store collaborator.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// ProviderConfig configures the primary/fallback pair for one capability
// (embedding or chat), per §4.1.
type ProviderConfig struct {
	Primary         string `mapstructure:"primary"`
	Fallback        string `mapstructure:"fallback"`
	Model           string `mapstructure:"model"`
	FallbackModel   string `mapstructure:"fallback_model"`
	APIKey          string `mapstructure:"api_key"`
	OllamaBaseURL   string `mapstructure:"ollama_base_url"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	MaxTokens       int    `mapstructure:"max_tokens"`
	Temperature     float32 `mapstructure:"temperature"`
}

// RAGConfig configures context assembly (C9) defaults (`rag.context.*`).
type RAGConfig struct {
	MaxTokens          int     `mapstructure:"max_tokens"`
	RelevanceThreshold float32 `mapstructure:"relevance_threshold"`
	IncludeMetadata    bool    `mapstructure:"include_metadata"`
}

// ConversationConfig configures the Conversation Store (C7).
type ConversationConfig struct {
	MaxHistory    int  `mapstructure:"max_history"`
	ContextWindow int  `mapstructure:"context_window"`
	TTLHours      int  `mapstructure:"ttl_hours"`
	EnableContext bool `mapstructure:"enable_context"`
}

// QueryOptimizationConfig configures the Query Optimizer (C8).
type QueryOptimizationConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MinLength       int  `mapstructure:"min_length"`
	ExpandAcronyms  bool `mapstructure:"expand_acronyms"`
	RemoveStopwords bool `mapstructure:"remove_stopwords"`
}

// EmbeddingConfig configures the Embedding Engine (C4) and Embedding Cache
// (C2).
type EmbeddingConfig struct {
	BatchSize             int `mapstructure:"batch_size"`
	CacheTTLSeconds       int `mapstructure:"cache_ttl_seconds"`
	PerTenantConcurrency  int `mapstructure:"per_tenant_concurrency"`
	L1CacheSize           int `mapstructure:"l1_cache_size"`
}

// Config is the root configuration object composed of one struct per
// concern, mirroring §6's configuration table.
type Config struct {
	Redis               RedisConfig             `mapstructure:"redis"`
	Qdrant              QdrantConfig            `mapstructure:"qdrant"`
	SQLite              SQLiteConfig            `mapstructure:"sqlite"`
	Embedding           EmbeddingConfig         `mapstructure:"embedding"`
	EmbeddingProvider   ProviderConfig          `mapstructure:"embedding_provider"`
	ChatProvider        ProviderConfig          `mapstructure:"chat_provider"`
	RAG                 RAGConfig               `mapstructure:"rag"`
	Conversation        ConversationConfig      `mapstructure:"conversation"`
	QueryOptimization   QueryOptimizationConfig `mapstructure:"query_optimization"`
	ResponseCacheTTLSec int                     `mapstructure:"response_cache_ttl_seconds"`
}

// Load reads configuration from an optional YAML file, environment
// variables (prefixed RAGCORE_), and a local .env file, falling back to the
// documented defaults from §6 when nothing overrides them.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load() // best-effort; absence of a .env file is not an error

	v := viper.New()
	v.SetEnvPrefix("RAGCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := os.Stat(configPath); ok == nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
			// Missing optional file: defaults + env still apply.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("qdrant.addr", "127.0.0.1:6334")

	v.SetDefault("sqlite.path", "ragcore.db")

	v.SetDefault("embedding.batch_size", 32)
	v.SetDefault("embedding.cache_ttl_seconds", 3600)
	v.SetDefault("embedding.per_tenant_concurrency", 4)
	v.SetDefault("embedding.l1_cache_size", 1000)

	v.SetDefault("embedding_provider.primary", "openai")
	v.SetDefault("embedding_provider.fallback", "ollama")
	v.SetDefault("embedding_provider.model", "text-embedding-3-small")
	v.SetDefault("embedding_provider.fallback_model", "nomic-embed-text")
	v.SetDefault("embedding_provider.ollama_base_url", "http://localhost:11434")
	v.SetDefault("embedding_provider.timeout_seconds", 30)

	v.SetDefault("chat_provider.primary", "openai")
	v.SetDefault("chat_provider.fallback", "ollama")
	v.SetDefault("chat_provider.model", "gpt-4o-mini")
	v.SetDefault("chat_provider.fallback_model", "llama3")
	v.SetDefault("chat_provider.ollama_base_url", "http://localhost:11434")
	v.SetDefault("chat_provider.timeout_seconds", 30)
	v.SetDefault("chat_provider.max_tokens", 1024)
	v.SetDefault("chat_provider.temperature", 0.2)

	v.SetDefault("rag.max_tokens", 4000)
	v.SetDefault("rag.relevance_threshold", 0.7)
	v.SetDefault("rag.include_metadata", true)

	v.SetDefault("conversation.max_history", 20)
	v.SetDefault("conversation.context_window", 5)
	v.SetDefault("conversation.ttl_hours", 24)
	v.SetDefault("conversation.enable_context", true)

	v.SetDefault("query_optimization.enabled", true)
	v.SetDefault("query_optimization.min_length", 3)
	v.SetDefault("query_optimization.expand_acronyms", true)
	v.SetDefault("query_optimization.remove_stopwords", false)

	v.SetDefault("response_cache_ttl_seconds", 3600)
}
