// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package store

import (
	"context"
	"sync"
	"time"

	"github.com/northbound/ragcore/internal/domain"
	"github.com/northbound/ragcore/internal/ragerrors"
)

type docKey struct {
	tenant domain.TenantID
	id     domain.DocumentID
}

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu        sync.Mutex
	documents map[docKey]domain.Document
	chunks    map[docKey][]domain.Chunk
}

// NewMockStore constructs an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		documents: make(map[docKey]domain.Document),
		chunks:    make(map[docKey][]domain.Chunk),
	}
}

func (m *MockStore) CreateDocument(ctx context.Context, doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	doc.CreatedAt, doc.UpdatedAt = now, now
	m.documents[docKey{doc.TenantID, doc.DocumentID}] = doc
	return nil
}

func (m *MockStore) LoadDocument(ctx context.Context, tenant domain.TenantID, id domain.DocumentID) (domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[docKey{tenant, id}]
	if !ok {
		return domain.Document{}, ragerrors.ErrNotFound
	}
	return doc, nil
}

func (m *MockStore) UpdateDocumentStatusCAS(ctx context.Context, tenant domain.TenantID, id domain.DocumentID, expected, next domain.DocumentStatus, failureCause string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := docKey{tenant, id}
	doc, ok := m.documents[key]
	if !ok {
		return ragerrors.ErrNotFound
	}
	if doc.Status != expected {
		return ragerrors.ErrCASConflict
	}
	doc.Status = next
	doc.FailureCause = failureCause
	doc.UpdatedAt = time.Now()
	m.documents[key] = doc
	return nil
}

func (m *MockStore) InsertChunks(ctx context.Context, tenant domain.TenantID, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := docKey{tenant, chunks[0].DocumentID}
	m.chunks[key] = append(m.chunks[key], chunks...)

	doc, ok := m.documents[key]
	if ok {
		for _, c := range chunks {
			doc.ChunkIDs = append(doc.ChunkIDs, c.ChunkID)
		}
		m.documents[key] = doc
	}
	return nil
}

func (m *MockStore) LoadChunksByDocument(ctx context.Context, tenant domain.TenantID, documentID domain.DocumentID) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Chunk(nil), m.chunks[docKey{tenant, documentID}]...), nil
}

func (m *MockStore) LoadChunksByIDs(ctx context.Context, tenant domain.TenantID, ids []domain.ChunkID) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[domain.ChunkID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var result []domain.Chunk
	for _, cs := range m.chunks {
		for _, c := range cs {
			if want[c.ChunkID] {
				result = append(result, c)
			}
		}
	}
	return result, nil
}

func (m *MockStore) DeleteChunksByDocument(ctx context.Context, tenant domain.TenantID, documentID domain.DocumentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, docKey{tenant, documentID})
	return nil
}

func (m *MockStore) HealthCheck(ctx context.Context) error { return nil }
