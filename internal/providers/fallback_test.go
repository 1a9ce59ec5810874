// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package providers

import (
	"context"
	"testing"

	"github.com/northbound/ragcore/internal/ragerrors"
)

type failingChatProvider struct{ name string }

func (f failingChatProvider) Name() string                  { return f.name }
func (f failingChatProvider) Probe(ctx context.Context) bool { return false }
func (f failingChatProvider) Chat(ctx context.Context, systemPrompt, userPrompt string, opts ChatOptions) (string, error) {
	return "", ragerrors.ErrProviderUnavailable
}
func (f failingChatProvider) ChatStream(ctx context.Context, systemPrompt, userPrompt string, opts ChatOptions) (<-chan StreamChunk, error) {
	return nil, ragerrors.ErrProviderUnavailable
}

type workingChatProvider struct{ name string }

func (w workingChatProvider) Name() string                  { return w.name }
func (w workingChatProvider) Probe(ctx context.Context) bool { return true }
func (w workingChatProvider) Chat(ctx context.Context, systemPrompt, userPrompt string, opts ChatOptions) (string, error) {
	return "answer from " + w.name, nil
}
func (w workingChatProvider) ChatStream(ctx context.Context, systemPrompt, userPrompt string, opts ChatOptions) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk, 1)
	out <- StreamChunk{Done: true}
	close(out)
	return out, nil
}

func TestFallbackChatProviderNameTracksPrimaryWhileHealthy(t *testing.T) {
	f := NewFallbackChatProvider(workingChatProvider{name: "primary"}, workingChatProvider{name: "secondary"})
	if _, err := f.Chat(context.Background(), "", "", ChatOptions{}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if got := f.Name(); got != "primary" {
		t.Fatalf("expected Name() to report the primary after it serves a request, got %q", got)
	}
}

func TestFallbackChatProviderNameTracksFallbackAfterPrimaryFails(t *testing.T) {
	f := NewFallbackChatProvider(failingChatProvider{name: "primary"}, workingChatProvider{name: "secondary"})

	answer, err := f.Chat(context.Background(), "", "", ChatOptions{})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if answer != "answer from secondary" {
		t.Fatalf("expected the fallback's answer, got %q", answer)
	}
	if got := f.Name(); got != "secondary" {
		t.Fatalf("expected Name() to report the fallback once it served the request, got %q", got)
	}
}

type failingEmbeddingProvider struct{ name string }

func (f failingEmbeddingProvider) Name() string                  { return f.name }
func (f failingEmbeddingProvider) Dimension() int                { return 4 }
func (f failingEmbeddingProvider) Probe(ctx context.Context) bool { return false }
func (f failingEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ragerrors.ErrProviderUnavailable
}

type workingEmbeddingProvider struct{ name string }

func (w workingEmbeddingProvider) Name() string                  { return w.name }
func (w workingEmbeddingProvider) Dimension() int                { return 4 }
func (w workingEmbeddingProvider) Probe(ctx context.Context) bool { return true }
func (w workingEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0, 0}
	}
	return vectors, nil
}

func TestFallbackEmbeddingProviderNameTracksFallbackAfterPrimaryFails(t *testing.T) {
	f := NewFallbackEmbeddingProvider(failingEmbeddingProvider{name: "primary"}, workingEmbeddingProvider{name: "secondary"})

	if _, err := f.EmbedBatch(context.Background(), []string{"hello"}); err != nil {
		t.Fatalf("embed batch: %v", err)
	}
	if got := f.Name(); got != "secondary" {
		t.Fatalf("expected Name() to report the fallback once it served the request, got %q", got)
	}
}
