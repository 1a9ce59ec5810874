// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package store

import (
	"context"

	"github.com/northbound/ragcore/internal/domain"
)

// Store is the relational collaborator backing document and chunk
// bookkeeping: document status, chunk text, and chunk-to-document
// membership. It does not store embedding vectors; those live in the
// vector index.
type Store interface {
	CreateDocument(ctx context.Context, doc domain.Document) error
	LoadDocument(ctx context.Context, tenant domain.TenantID, id domain.DocumentID) (domain.Document, error)

	// UpdateDocumentStatusCAS transitions a document's status only if its
	// current status equals expected, implementing the compare-and-swap
	// contract the document pipeline relies on for idempotent processing.
	// It returns ragerrors.ErrCASConflict if the current status did not
	// match, and ragerrors.ErrNotFound if the document does not exist.
	UpdateDocumentStatusCAS(ctx context.Context, tenant domain.TenantID, id domain.DocumentID, expected, next domain.DocumentStatus, failureCause string) error

	InsertChunks(ctx context.Context, tenant domain.TenantID, chunks []domain.Chunk) error
	LoadChunksByDocument(ctx context.Context, tenant domain.TenantID, documentID domain.DocumentID) ([]domain.Chunk, error)
	LoadChunksByIDs(ctx context.Context, tenant domain.TenantID, ids []domain.ChunkID) ([]domain.Chunk, error)
	DeleteChunksByDocument(ctx context.Context, tenant domain.TenantID, documentID domain.DocumentID) error

	HealthCheck(ctx context.Context) error
}
