// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package cache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/northbound/ragcore/internal/domain"
)

// fakeStore is an in-memory Store for tests, supporting the same prefix
// scan RedisStore backs with SCAN.
type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeStore() *fakeStore { return &fakeStore{data: make(map[string][]byte)} }

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *fakeStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *fakeStore) Delete(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *fakeStore) Keys(ctx context.Context, prefix string) []string {
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

func TestContentKeyTenantIsolation(t *testing.T) {
	a := ContentKey(domain.TenantID("tenant-a"), "chunk", "same content")
	b := ContentKey(domain.TenantID("tenant-b"), "chunk", "same content")
	if a == b {
		t.Fatal("expected different tenants to never collide on identical content")
	}
}

func TestContentKeyDeterministic(t *testing.T) {
	a := ContentKey(domain.TenantID("tenant-a"), "chunk", "same content")
	b := ContentKey(domain.TenantID("tenant-a"), "chunk", "same content")
	if a != b {
		t.Fatal("expected identical inputs to produce the same key")
	}
}

func TestResponseCacheGetPutRoundTrip(t *testing.T) {
	rc := NewResponseCache(newFakeStore(), time.Hour)
	ctx := context.Background()

	resp := domain.RagResponse{Status: domain.StatusSuccess, Answer: "the answer"}
	rc.Put(ctx, "tenant-a", "what is the answer", resp)

	got, ok := rc.Get(ctx, "tenant-a", "what is the answer")
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.Answer != "the answer" {
		t.Fatalf("unexpected cached answer: %q", got.Answer)
	}

	if _, ok := rc.Get(ctx, "tenant-b", "what is the answer"); ok {
		t.Fatal("expected no cross-tenant cache hit")
	}
}

func TestResponseCacheInvalidateTenant(t *testing.T) {
	rc := NewResponseCache(newFakeStore(), time.Hour)
	ctx := context.Background()

	rc.Put(ctx, "tenant-a", "first query", domain.RagResponse{Status: domain.StatusSuccess, Answer: "a1"})
	rc.Put(ctx, "tenant-a", "second query", domain.RagResponse{Status: domain.StatusSuccess, Answer: "a2"})
	rc.Put(ctx, "tenant-b", "first query", domain.RagResponse{Status: domain.StatusSuccess, Answer: "b1"})

	rc.InvalidateTenant(ctx, "tenant-a")

	if _, ok := rc.Get(ctx, "tenant-a", "first query"); ok {
		t.Error("expected tenant-a's first query to be evicted")
	}
	if _, ok := rc.Get(ctx, "tenant-a", "second query"); ok {
		t.Error("expected tenant-a's second query to be evicted")
	}
	if _, ok := rc.Get(ctx, "tenant-b", "first query"); !ok {
		t.Error("expected tenant-b's cache entry to survive tenant-a's invalidation")
	}
}
