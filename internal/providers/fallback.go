// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package providers

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/northbound/ragcore/internal/logging"
	"github.com/northbound/ragcore/internal/ragerrors"
)

// FallbackEmbeddingProvider wraps a primary and a fallback embedding
// provider. On a transient primary failure it attempts the fallback exactly
// once; it never cascades further and never retries the primary within the
// same call.
type FallbackEmbeddingProvider struct {
	primary  EmbeddingProvider
	fallback EmbeddingProvider
	lastUsed atomic.Value // string, the provider name that answered most recently
}

// NewFallbackEmbeddingProvider pairs a primary with its fallback. fallback
// may be nil, in which case primary failures are returned unwrapped.
func NewFallbackEmbeddingProvider(primary, fallback EmbeddingProvider) *FallbackEmbeddingProvider {
	return &FallbackEmbeddingProvider{primary: primary, fallback: fallback}
}

// Name reports whichever of primary or fallback last actually answered an
// EmbedBatch call, so a caller surfacing metrics.providerUsed sees the
// fallback id once it has taken over, not a static primary name.
func (f *FallbackEmbeddingProvider) Name() string {
	if v, ok := f.lastUsed.Load().(string); ok && v != "" {
		return v
	}
	return f.primary.Name()
}

func (f *FallbackEmbeddingProvider) Dimension() int {
	return f.primary.Dimension()
}

func (f *FallbackEmbeddingProvider) Probe(ctx context.Context) bool {
	if f.primary.Probe(ctx) {
		return true
	}
	return f.fallback != nil && f.fallback.Probe(ctx)
}

// EmbedBatch tries the primary provider, and on a transient error falls back
// to the secondary provider exactly once.
func (f *FallbackEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := f.primary.EmbedBatch(ctx, texts)
	if err == nil {
		f.lastUsed.Store(f.primary.Name())
		return vectors, nil
	}
	if f.fallback == nil || !ragerrors.Transient(err) {
		return nil, err
	}

	logging.Warnf("embedding provider %s failed (%v), falling back to %s", f.primary.Name(), err, f.fallback.Name())
	vectors, fbErr := f.fallback.EmbedBatch(ctx, texts)
	if fbErr != nil {
		return nil, fmt.Errorf("primary %q failed: %w (fallback %q also failed: %v)", f.primary.Name(), err, f.fallback.Name(), fbErr)
	}
	f.lastUsed.Store(f.fallback.Name())
	return vectors, nil
}

// FallbackChatProvider wraps a primary and a fallback chat provider with the
// same single-attempt fallback contract as FallbackEmbeddingProvider.
type FallbackChatProvider struct {
	primary  ChatStreamingProvider
	fallback ChatStreamingProvider
	lastUsed atomic.Value // string, the provider name that answered most recently
}

// NewFallbackChatProvider pairs a primary with its fallback. fallback may be
// nil.
func NewFallbackChatProvider(primary, fallback ChatStreamingProvider) *FallbackChatProvider {
	return &FallbackChatProvider{primary: primary, fallback: fallback}
}

// Name reports whichever of primary or fallback last actually answered a
// Chat or ChatStream call, so metrics.providerUsed reflects reality once the
// fallback has taken over.
func (f *FallbackChatProvider) Name() string {
	if v, ok := f.lastUsed.Load().(string); ok && v != "" {
		return v
	}
	return f.primary.Name()
}

func (f *FallbackChatProvider) Probe(ctx context.Context) bool {
	if f.primary.Probe(ctx) {
		return true
	}
	return f.fallback != nil && f.fallback.Probe(ctx)
}

// Chat tries the primary provider, falling back once on a transient error.
func (f *FallbackChatProvider) Chat(ctx context.Context, systemPrompt, userPrompt string, opts ChatOptions) (string, error) {
	answer, err := f.primary.Chat(ctx, systemPrompt, userPrompt, opts)
	if err == nil {
		f.lastUsed.Store(f.primary.Name())
		return answer, nil
	}
	if f.fallback == nil || !ragerrors.Transient(err) {
		return "", err
	}

	logging.Warnf("chat provider %s failed (%v), falling back to %s", f.primary.Name(), err, f.fallback.Name())
	answer, fbErr := f.fallback.Chat(ctx, systemPrompt, userPrompt, opts)
	if fbErr != nil {
		return "", fmt.Errorf("primary %q failed: %w (fallback %q also failed: %v)", f.primary.Name(), err, f.fallback.Name(), fbErr)
	}
	f.lastUsed.Store(f.fallback.Name())
	return answer, nil
}

// ChatStream tries the primary stream, falling back once if the primary
// fails to even open a stream. Once a stream has started emitting chunks,
// a mid-stream error is surfaced to the caller as a StreamChunk.Err rather
// than triggering fallback, since partial output has already been produced.
func (f *FallbackChatProvider) ChatStream(ctx context.Context, systemPrompt, userPrompt string, opts ChatOptions) (<-chan StreamChunk, error) {
	stream, err := f.primary.ChatStream(ctx, systemPrompt, userPrompt, opts)
	if err == nil {
		f.lastUsed.Store(f.primary.Name())
		return stream, nil
	}
	if f.fallback == nil || !ragerrors.Transient(err) {
		return nil, err
	}

	logging.Warnf("chat stream provider %s failed to open (%v), falling back to %s", f.primary.Name(), err, f.fallback.Name())
	stream, fbErr := f.fallback.ChatStream(ctx, systemPrompt, userPrompt, opts)
	if fbErr != nil {
		return nil, fmt.Errorf("primary %q failed: %w (fallback %q also failed: %v)", f.primary.Name(), err, f.fallback.Name(), fbErr)
	}
	f.lastUsed.Store(f.fallback.Name())
	return stream, nil
}
