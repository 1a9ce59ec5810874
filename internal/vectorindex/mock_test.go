// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package vectorindex

import (
	"context"
	"testing"

	"github.com/northbound/ragcore/internal/domain"
)

func TestMockIndexTopKOrdering(t *testing.T) {
	idx := NewMockIndex()
	ctx := context.Background()
	tenant := domain.TenantID("tenant-a")

	if err := idx.Upsert(ctx, tenant, "m1", "c1", []float32{1, 0, 0}, map[string]string{"document_id": "d1"}); err != nil {
		t.Fatalf("upsert c1: %v", err)
	}
	if err := idx.Upsert(ctx, tenant, "m1", "c2", []float32{1, 0, 0}, map[string]string{"document_id": "d1"}); err != nil {
		t.Fatalf("upsert c2: %v", err)
	}
	if err := idx.Upsert(ctx, tenant, "m1", "c3", []float32{0, 1, 0}, map[string]string{"document_id": "d2"}); err != nil {
		t.Fatalf("upsert c3: %v", err)
	}

	hits, err := idx.TopK(ctx, tenant, "m1", []float32{1, 0, 0}, 10, 0, nil)
	if err != nil {
		t.Fatalf("topk: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	// c1 and c2 tie at score 1.0; lexicographic ChunkID breaks the tie.
	if hits[0].ChunkID != "c1" || hits[1].ChunkID != "c2" {
		t.Fatalf("expected tie broken by chunk id, got %v, %v", hits[0].ChunkID, hits[1].ChunkID)
	}
	if hits[2].ChunkID != "c3" {
		t.Fatalf("expected c3 last, got %v", hits[2].ChunkID)
	}
}

func TestMockIndexTenantIsolation(t *testing.T) {
	idx := NewMockIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "tenant-a", "m1", "c1", []float32{1, 0}, nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := idx.TopK(ctx, "tenant-b", "m1", []float32{1, 0}, 10, 0, nil)
	if err != nil {
		t.Fatalf("topk: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no cross-tenant hits, got %d", len(hits))
	}
}

func TestMockIndexZeroNormQuery(t *testing.T) {
	idx := NewMockIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "tenant-a", "m1", "c1", []float32{1, 0}, nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := idx.TopK(ctx, "tenant-a", "m1", []float32{0, 0}, 10, 0, nil)
	if err != nil {
		t.Fatalf("topk: %v", err)
	}
	if hits != nil {
		t.Fatalf("expected nil result for zero-norm query, got %v", hits)
	}
}

func TestMockIndexTopKFilter(t *testing.T) {
	idx := NewMockIndex()
	ctx := context.Background()
	tenant := domain.TenantID("tenant-a")

	idx.Upsert(ctx, tenant, "m1", "c1", []float32{1, 0}, map[string]string{"document_id": "d1", "source": "policy"})
	idx.Upsert(ctx, tenant, "m1", "c2", []float32{1, 0}, map[string]string{"document_id": "d2", "source": "handbook"})

	hits, err := idx.TopK(ctx, tenant, "m1", []float32{1, 0}, 10, 0, map[string]string{"source": "handbook"})
	if err != nil {
		t.Fatalf("topk: %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "c2" {
		t.Fatalf("expected only c2 to match the filter, got %v", hits)
	}

	hits, err = idx.TopK(ctx, tenant, "m1", []float32{1, 0}, 10, 0, map[string]string{"source": "nonexistent"})
	if err != nil {
		t.Fatalf("topk: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no matches for a filter value that excludes everything, got %v", hits)
	}
}

func TestMockIndexDeleteDocument(t *testing.T) {
	idx := NewMockIndex()
	ctx := context.Background()
	tenant := domain.TenantID("tenant-a")

	idx.Upsert(ctx, tenant, "m1", "c1", []float32{1, 0}, map[string]string{"document_id": "d1"})
	idx.Upsert(ctx, tenant, "m1", "c2", []float32{0, 1}, map[string]string{"document_id": "d2"})

	if err := idx.DeleteDocument(ctx, tenant, "m1", "d1"); err != nil {
		t.Fatalf("delete document: %v", err)
	}

	hits, err := idx.TopK(ctx, tenant, "m1", []float32{1, 0}, 10, -1, nil)
	if err != nil {
		t.Fatalf("topk: %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "c2" {
		t.Fatalf("expected only c2 to remain, got %v", hits)
	}
}
