// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/northbound/ragcore/internal/cache"
	"github.com/northbound/ragcore/internal/domain"
	"github.com/northbound/ragcore/internal/embedengine"
	"github.com/northbound/ragcore/internal/providers"
	"github.com/northbound/ragcore/internal/queryopt"
	"github.com/northbound/ragcore/internal/vectorindex"
)

// memStore is a tiny in-memory cache.Store for tests; Redis is not wired
// into unit tests.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) Get(ctx context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *memStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *memStore) Delete(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *memStore) Keys(ctx context.Context, prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

func seedChunk(t *testing.T, idx *vectorindex.MockIndex, model string, tenant domain.TenantID, chunkID domain.ChunkID, vector []float32, content string) {
	t.Helper()
	err := idx.Upsert(context.Background(), tenant, model, chunkID, vector, map[string]string{
		"document_id": "doc-1",
		"content":     content,
	})
	if err != nil {
		t.Fatalf("seed chunk: %v", err)
	}
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *vectorindex.MockIndex, *providers.MockEmbeddingProvider) {
	t.Helper()
	idx := vectorindex.NewMockIndex()
	embedProvider := providers.NewMockEmbeddingProvider(4)
	embedder := embedengine.New(embedengine.Config{Provider: embedProvider, Index: idx})
	respCache := cache.NewResponseCache(newMemStore(), time.Hour)

	o := New(Config{
		ResponseCache: respCache,
		Embedder:      embedder,
		Index:         idx,
		Chat:          providers.NewMockChatProvider(),
		QueryOptions:  queryopt.Options{Enabled: true, MinLength: 3},
	})
	return o, idx, embedProvider
}

func TestQueryReturnsEmptyWhenNoHits(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	resp := o.Query(context.Background(), "tenant-a", "what is the meaning of life", QueryOptions{})
	if resp.Status != domain.StatusEmpty {
		t.Fatalf("expected EMPTY status, got %s (%s)", resp.Status, resp.Error)
	}
}

func TestQuerySucceedsWithHits(t *testing.T) {
	o, idx, embedProvider := newTestOrchestrator(t)
	ctx := context.Background()

	vec, err := embedProvider.EmbedBatch(ctx, []string{"pricing information for the premium tier"})
	if err != nil {
		t.Fatalf("embed seed vector: %v", err)
	}
	seedChunk(t, idx, embedProvider.Name(), "tenant-a", "c1", vec[0], "The premium tier costs fifty dollars per month.")

	resp := o.Query(ctx, "tenant-a", "pricing information for the premium tier", QueryOptions{RelevanceThreshold: 0.1})
	if resp.Status != domain.StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s (%s)", resp.Status, resp.Error)
	}
	if resp.Answer == "" {
		t.Error("expected a non-empty answer")
	}
	if len(resp.Sources) != 1 {
		t.Errorf("expected one source, got %d", len(resp.Sources))
	}
}

func TestQueryCacheHitSkipsRetrieval(t *testing.T) {
	o, idx, embedProvider := newTestOrchestrator(t)
	ctx := context.Background()

	vec, _ := embedProvider.EmbedBatch(ctx, []string{"what is the refund policy"})
	seedChunk(t, idx, embedProvider.Name(), "tenant-a", "c1", vec[0], "Refunds are available within 30 days.")

	first := o.Query(ctx, "tenant-a", "what is the refund policy", QueryOptions{RelevanceThreshold: 0.1})
	if first.Status != domain.StatusSuccess {
		t.Fatalf("expected first call to succeed, got %s", first.Status)
	}
	if first.Metrics.FromCache {
		t.Fatal("first call should not be a cache hit")
	}

	second := o.Query(ctx, "tenant-a", "what is the refund policy", QueryOptions{RelevanceThreshold: 0.1})
	if !second.Metrics.FromCache {
		t.Fatal("second identical call should be served from cache")
	}
	if second.Answer != first.Answer {
		t.Errorf("cached answer should match original answer")
	}
}

func TestQueryEmptyResponseIsCached(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	first := o.Query(ctx, "tenant-a", "a query with absolutely no matches anywhere", QueryOptions{})
	if first.Status != domain.StatusEmpty {
		t.Fatalf("expected EMPTY, got %s", first.Status)
	}

	second := o.Query(ctx, "tenant-a", "a query with absolutely no matches anywhere", QueryOptions{})
	if !second.Metrics.FromCache {
		t.Fatal("expected the EMPTY response to have been cached and served")
	}
}

func TestQueryStreamDeliversChunksAndTerminates(t *testing.T) {
	o, idx, embedProvider := newTestOrchestrator(t)
	ctx := context.Background()

	vec, _ := embedProvider.EmbedBatch(ctx, []string{"explain the onboarding process"})
	seedChunk(t, idx, embedProvider.Name(), "tenant-a", "c1", vec[0], "Onboarding takes roughly two business days.")

	stream, err := o.QueryStream(ctx, "tenant-a", "explain the onboarding process", QueryOptions{RelevanceThreshold: 0.1})
	if err != nil {
		t.Fatalf("query stream: %v", err)
	}

	var sawDone bool
	for chunk := range stream {
		if chunk.Err != nil {
			t.Fatalf("unexpected stream error: %v", chunk.Err)
		}
		if chunk.Done {
			sawDone = true
		}
	}
	if !sawDone {
		t.Fatal("expected the stream to terminate with a Done chunk")
	}
}
