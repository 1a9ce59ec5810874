// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package providers gives the rest of the system a uniform,
// provider-agnostic surface over external embedding and chat models (C1).
// Each capability is exposed as a small interface with concrete adapters
// selected at startup by configuration — no runtime class loading, per the
// DESIGN NOTES in spec.md §9.
package providers

import (
	"context"
	"fmt"
)

// EmbeddingProvider generates vector embeddings from text.
type EmbeddingProvider interface {
	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed dimension of vectors this provider emits.
	Dimension() int

	// Probe performs a minimal health call. It must not mutate any
	// observable provider state other than metrics.
	Probe(ctx context.Context) bool

	// Name identifies the provider for metrics and ResponseMetrics.ProviderUsed.
	Name() string
}

// EmbeddingProviderConfig configures a single adapter instance.
type EmbeddingProviderConfig struct {
	Type    string // "openai", "ollama", "mock"
	APIKey  string
	Model   string
	BaseURL string
	DimHint int
}

// NewEmbeddingProvider builds a concrete adapter for the given type.
func NewEmbeddingProvider(cfg EmbeddingProviderConfig) (EmbeddingProvider, error) {
	switch cfg.Type {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai embedding provider: api key is required")
		}
		model := cfg.Model
		if model == "" {
			model = "text-embedding-3-small"
		}
		return NewOpenAIEmbeddingProvider(cfg.APIKey, model), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllamaEmbeddingProvider(baseURL, model), nil
	case "mock", "":
		dim := cfg.DimHint
		if dim == 0 {
			dim = 384
		}
		return NewMockEmbeddingProvider(dim), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider type: %s", cfg.Type)
	}
}
