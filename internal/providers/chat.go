// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package providers

import (
	"context"
	"fmt"
)

// ChatOptions carries the per-call generation parameters (§6 configuration).
type ChatOptions struct {
	MaxTokens   int
	Temperature float32
}

// ChatProvider drives a chat/completion model to produce a grounded answer.
type ChatProvider interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string, opts ChatOptions) (string, error)
	Probe(ctx context.Context) bool
	Name() string
}

// StreamChunk is one fragment of a ChatStream sequence.
type StreamChunk struct {
	Text string
	Err  error
	Done bool
}

// ChatStreamingProvider produces a lazy, finite, single-pass sequence of
// text fragments. Consumers must drain or cancel it; cancelling ctx closes
// the provider-side stream and stops fragment delivery.
type ChatStreamingProvider interface {
	ChatProvider
	ChatStream(ctx context.Context, systemPrompt, userPrompt string, opts ChatOptions) (<-chan StreamChunk, error)
}

// ChatProviderConfig configures a single chat adapter instance.
type ChatProviderConfig struct {
	Type    string // "openai", "ollama", "mock"
	APIKey  string
	Model   string
	BaseURL string
}

// NewChatProvider builds a concrete streaming-capable chat adapter.
func NewChatProvider(cfg ChatProviderConfig) (ChatStreamingProvider, error) {
	switch cfg.Type {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai chat provider: api key is required")
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return NewOpenAIChatProvider(cfg.APIKey, model), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "llama3"
		}
		return NewOllamaChatProvider(baseURL, model), nil
	case "mock", "":
		return NewMockChatProvider(), nil
	default:
		return nil, fmt.Errorf("unknown chat provider type: %s", cfg.Type)
	}
}
