// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package vectorindex

import (
	"context"

	"github.com/northbound/ragcore/internal/domain"
)

// ScoredChunk is a single vector search hit.
type ScoredChunk struct {
	ChunkID    domain.ChunkID
	DocumentID domain.DocumentID
	Score      float32
	Metadata   map[string]string
}

// Index is the vector store contract used by the embedding engine and the
// query orchestrator. Every operation is scoped to a single tenant and
// embedding model; an index implementation is responsible for keeping
// different (tenant, model) pairs from ever seeing each other's vectors.
type Index interface {
	// Upsert stores or replaces a chunk's vector and metadata.
	Upsert(ctx context.Context, tenant domain.TenantID, model string, chunkID domain.ChunkID, vector []float32, metadata map[string]string) error

	// Delete removes a chunk's vector, if present. Deleting an absent chunk
	// is not an error.
	Delete(ctx context.Context, tenant domain.TenantID, model string, chunkID domain.ChunkID) error

	// DeleteDocument removes every chunk vector belonging to a document.
	DeleteDocument(ctx context.Context, tenant domain.TenantID, model string, documentID domain.DocumentID) error

	// TopK returns up to k nearest neighbors to queryVector by cosine
	// similarity, restricted to the given tenant and model, with scores
	// >= minScore. filter, if non-empty, is a conjunction of
	// metadata.key==value predicates applied before the k-cutoff; a nil or
	// empty filter matches everything. Ties are broken by ascending
	// lexicographic ChunkID so that results are fully deterministic. A
	// zero-norm query vector always yields an empty result.
	TopK(ctx context.Context, tenant domain.TenantID, model string, queryVector []float32, k int, minScore float32, filter map[string]string) ([]ScoredChunk, error)

	// HealthCheck reports whether the index is currently reachable.
	HealthCheck(ctx context.Context) error
}
