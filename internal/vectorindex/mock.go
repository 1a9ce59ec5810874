// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/northbound/ragcore/internal/domain"
)

type mockEntry struct {
	documentID domain.DocumentID
	vector     []float32
	metadata   map[string]string
}

// MockIndex is an in-memory Index for tests, with no external dependency.
type MockIndex struct {
	mu   sync.RWMutex
	data map[string]map[domain.ChunkID]mockEntry // collection -> chunkID -> entry
}

// NewMockIndex constructs an empty in-memory index.
func NewMockIndex() *MockIndex {
	return &MockIndex{data: make(map[string]map[domain.ChunkID]mockEntry)}
}

func (m *MockIndex) collection(tenant domain.TenantID, model string) map[domain.ChunkID]mockEntry {
	key := collectionName(tenant, model)
	c, ok := m.data[key]
	if !ok {
		c = make(map[domain.ChunkID]mockEntry)
		m.data[key] = c
	}
	return c
}

func (m *MockIndex) Upsert(ctx context.Context, tenant domain.TenantID, model string, chunkID domain.ChunkID, vector []float32, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docID domain.DocumentID
	if metadata != nil {
		docID = domain.DocumentID(metadata["document_id"])
	}
	m.collection(tenant, model)[chunkID] = mockEntry{documentID: docID, vector: vector, metadata: metadata}
	return nil
}

func (m *MockIndex) Delete(ctx context.Context, tenant domain.TenantID, model string, chunkID domain.ChunkID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collection(tenant, model), chunkID)
	return nil
}

func (m *MockIndex) DeleteDocument(ctx context.Context, tenant domain.TenantID, model string, documentID domain.DocumentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(tenant, model)
	for id, e := range c {
		if e.documentID == documentID {
			delete(c, id)
		}
	}
	return nil
}

func (m *MockIndex) TopK(ctx context.Context, tenant domain.TenantID, model string, queryVector []float32, k int, minScore float32, filter map[string]string) ([]ScoredChunk, error) {
	if k <= 0 {
		k = 10
	}
	if normZero(queryVector) {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]ScoredChunk, 0)
	for id, e := range m.collection(tenant, model) {
		if !matchesFilter(e.metadata, filter) {
			continue
		}
		score := cosineSimilarity(queryVector, e.vector)
		if score < minScore {
			continue
		}
		hits = append(hits, ScoredChunk{ChunkID: id, DocumentID: e.documentID, Score: score, Metadata: e.metadata})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MockIndex) HealthCheck(ctx context.Context) error { return nil }

// matchesFilter reports whether metadata satisfies every key==value
// predicate in filter. A nil or empty filter matches everything.
func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
