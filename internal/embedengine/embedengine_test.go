// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package embedengine

import (
	"context"
	"errors"
	"testing"

	"github.com/northbound/ragcore/internal/domain"
	"github.com/northbound/ragcore/internal/providers"
	"github.com/northbound/ragcore/internal/vectorindex"
)

func TestEmbedChunksAllSucceed(t *testing.T) {
	provider := providers.NewMockEmbeddingProvider(8)
	engine := New(Config{
		Provider:  provider,
		Index:     vectorindex.NewMockIndex(),
		BatchSize: 4,
	})

	chunks := []domain.Chunk{
		{ChunkID: "c1", Content: "alpha"},
		{ChunkID: "c2", Content: "beta"},
		{ChunkID: "c3", Content: "gamma"},
	}

	result := engine.EmbedChunks(context.Background(), "tenant-a", chunks)
	if result.Outcome != OutcomeComplete {
		t.Fatalf("expected COMPLETE outcome, got %s", result.Outcome)
	}
	if len(result.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(result.Results))
	}
	for i, r := range result.Results {
		if r.Err != nil {
			t.Fatalf("chunk %d: unexpected error: %v", i, r.Err)
		}
		if r.ChunkID != chunks[i].ChunkID {
			t.Fatalf("result order mismatch at %d: got %s want %s", i, r.ChunkID, chunks[i].ChunkID)
		}
		if len(r.Vector) != 8 {
			t.Fatalf("chunk %d: expected dim 8, got %d", i, len(r.Vector))
		}
	}
}

func TestEmbedChunksEmptyInput(t *testing.T) {
	provider := providers.NewMockEmbeddingProvider(8)
	engine := New(Config{Provider: provider, Index: vectorindex.NewMockIndex()})

	result := engine.EmbedChunks(context.Background(), "tenant-a", nil)
	if result.Outcome != OutcomeComplete {
		t.Fatalf("expected COMPLETE outcome for empty input, got %s", result.Outcome)
	}
	if len(result.Results) != 0 {
		t.Fatalf("expected no results, got %d", len(result.Results))
	}
}

// failingProvider always returns a non-transient error, to exercise the
// all-FAILED classification without waiting out the retry backoff.
type failingProvider struct{}

func (failingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("boom")
}
func (failingProvider) Dimension() int                 { return 8 }
func (failingProvider) Probe(ctx context.Context) bool { return false }
func (failingProvider) Name() string                   { return "failing" }

func TestEmbedChunksAllFail(t *testing.T) {
	engine := New(Config{Provider: failingProvider{}, Index: vectorindex.NewMockIndex()})

	chunks := []domain.Chunk{{ChunkID: "c1", Content: "alpha"}}
	result := engine.EmbedChunks(context.Background(), "tenant-a", chunks)
	if result.Outcome != OutcomeFailed {
		t.Fatalf("expected FAILED outcome, got %s", result.Outcome)
	}
	if result.Results[0].Err == nil {
		t.Fatalf("expected an error on the chunk result")
	}
}
