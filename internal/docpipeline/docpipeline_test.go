// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package docpipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/northbound/ragcore/internal/bus"
	"github.com/northbound/ragcore/internal/chunker"
	"github.com/northbound/ragcore/internal/domain"
	"github.com/northbound/ragcore/internal/embedengine"
	"github.com/northbound/ragcore/internal/providers"
	"github.com/northbound/ragcore/internal/ragerrors"
	"github.com/northbound/ragcore/internal/store"
	"github.com/northbound/ragcore/internal/tenantlimit"
	"github.com/northbound/ragcore/internal/vectorindex"
)

// partialFailProvider embeds every text successfully except ones containing
// the marker "BOOM", so a single document can be made to produce a PARTIAL
// embedengine.BatchOutcome deterministically.
type partialFailProvider struct{ dim int }

func (p partialFailProvider) Dimension() int                 { return p.dim }
func (p partialFailProvider) Name() string                   { return "partial-mock" }
func (p partialFailProvider) Probe(ctx context.Context) bool { return true }

func (p partialFailProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if strings.Contains(t, "BOOM") {
			return nil, ragerrors.ErrInvalidInput
		}
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, p.dim)
		vectors[i][0] = 1
	}
	return vectors, nil
}

type memReader struct {
	docs map[string][]byte
}

func (r memReader) ReadDocument(ctx context.Context, storageRef string) ([]byte, error) {
	return r.docs[storageRef], nil
}

func newTestPipeline(t *testing.T, s store.Store, b bus.Bus, content []byte) *Pipeline {
	t.Helper()
	idx := vectorindex.NewMockIndex()
	embedder := embedengine.New(embedengine.Config{
		Provider: providers.NewMockEmbeddingProvider(8),
		Index:    idx,
	})
	return New(Config{
		Bus:          b,
		Store:        s,
		Reader:       memReader{docs: map[string][]byte{"ref-1": content}},
		Embedder:     embedder,
		ChunkStrategy: chunker.StrategyFixed,
		Limiter:      tenantlimit.New(4),
	})
}

func TestPipelineProcessCompletesDocument(t *testing.T) {
	ctx := context.Background()
	s := store.NewMockStore()
	b := bus.NewMemoryBus()

	doc := domain.Document{
		DocumentID:  "doc-1",
		TenantID:    "tenant-a",
		StorageRef:  "ref-1",
		ContentType: "text/plain",
		Status:      domain.DocumentPending,
	}
	if err := s.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("create document: %v", err)
	}

	p := newTestPipeline(t, s, b, []byte("This is a short document about pricing tiers and support plans."))
	p.process(ctx, "tenant-a", "doc-1")

	loaded, err := s.LoadDocument(ctx, "tenant-a", "doc-1")
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	if loaded.Status != domain.DocumentCompleted {
		t.Fatalf("expected COMPLETED, got %s (cause=%s)", loaded.Status, loaded.FailureCause)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	msg, err := b.Consume(ctxTimeout, bus.TopicEmbeddingCompleted)
	if err != nil {
		t.Fatalf("expected a completion event, got error: %v", err)
	}
	var event CompletedEvent
	if err := bus.Decode(msg, &event); err != nil {
		t.Fatalf("decode completion event: %v", err)
	}
	if event.DocumentID != "doc-1" {
		t.Errorf("unexpected document id in completion event: %s", event.DocumentID)
	}
}

func TestPipelineProcessMarksPartialEmbedOutcomeAsFailed(t *testing.T) {
	ctx := context.Background()
	s := store.NewMockStore()
	b := bus.NewMemoryBus()

	doc := domain.Document{
		DocumentID:  "doc-1",
		TenantID:    "tenant-a",
		StorageRef:  "ref-1",
		ContentType: "text/plain",
		Status:      domain.DocumentPending,
	}
	if err := s.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("create document: %v", err)
	}

	idx := vectorindex.NewMockIndex()
	embedder := embedengine.New(embedengine.Config{
		Provider:  partialFailProvider{dim: 8},
		Index:     idx,
		BatchSize: 1, // force one chunk per embed call so one failure doesn't sink the whole batch
	})
	content := "This opening chunk embeds fine on its own. " +
		"BOOM this middle chunk always fails to embed. " +
		"This closing chunk also embeds fine on its own."
	p := New(Config{
		Bus:           b,
		Store:         s,
		Reader:        memReader{docs: map[string][]byte{"ref-1": []byte(content)}},
		Embedder:      embedder,
		ChunkStrategy: chunker.StrategyFixed,
		ChunkOptions:  chunker.Options{Strategy: chunker.StrategyFixed, MaxTokens: 13, MinTokens: 1, OverlapTokens: 0},
		Limiter:       tenantlimit.New(4),
	})

	p.process(ctx, "tenant-a", "doc-1")

	loaded, err := s.LoadDocument(ctx, "tenant-a", "doc-1")
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	if loaded.Status != domain.DocumentFailed {
		t.Fatalf("expected FAILED after a partial embed outcome, got %s", loaded.Status)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	msg, err := b.Consume(ctxTimeout, bus.TopicDocumentFailed)
	if err != nil {
		t.Fatalf("expected a failure event, got error: %v", err)
	}
	var event FailedEvent
	if err := bus.Decode(msg, &event); err != nil {
		t.Fatalf("decode failure event: %v", err)
	}
	if len(event.ChunkErrors) == 0 {
		t.Error("expected the failure event to report at least one chunk error")
	}

	// No embedding-completed event should have been emitted for a
	// partially-failed document.
	shortCtx, cancel2 := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel2()
	if _, err := b.Consume(shortCtx, bus.TopicEmbeddingCompleted); err == nil {
		t.Error("did not expect an embedding-completed event for a partial outcome")
	}
}

func TestPipelineProcessSkipsNonPendingDocument(t *testing.T) {
	ctx := context.Background()
	s := store.NewMockStore()
	b := bus.NewMemoryBus()

	doc := domain.Document{
		DocumentID: "doc-1",
		TenantID:   "tenant-a",
		Status:     domain.DocumentCompleted,
	}
	s.CreateDocument(ctx, doc)

	p := newTestPipeline(t, s, b, []byte("content"))
	p.process(ctx, "tenant-a", "doc-1")

	loaded, _ := s.LoadDocument(ctx, "tenant-a", "doc-1")
	if loaded.Status != domain.DocumentCompleted {
		t.Fatalf("expected status to remain COMPLETED on redelivery, got %s", loaded.Status)
	}
}

func TestPipelineReprocessRequiresFailedStatus(t *testing.T) {
	ctx := context.Background()
	s := store.NewMockStore()
	b := bus.NewMemoryBus()

	doc := domain.Document{DocumentID: "doc-1", TenantID: "tenant-a", Status: domain.DocumentCompleted}
	s.CreateDocument(ctx, doc)

	p := newTestPipeline(t, s, b, []byte("content"))
	if err := p.Reprocess(ctx, "tenant-a", "doc-1"); err == nil {
		t.Fatal("expected error reprocessing a non-FAILED document")
	}
}

func TestPipelineReprocessResetsFailedDocument(t *testing.T) {
	ctx := context.Background()
	s := store.NewMockStore()
	b := bus.NewMemoryBus()

	doc := domain.Document{DocumentID: "doc-1", TenantID: "tenant-a", Status: domain.DocumentFailed}
	s.CreateDocument(ctx, doc)

	p := newTestPipeline(t, s, b, []byte("content"))
	if err := p.Reprocess(ctx, "tenant-a", "doc-1"); err != nil {
		t.Fatalf("reprocess failed: %v", err)
	}

	loaded, _ := s.LoadDocument(ctx, "tenant-a", "doc-1")
	if loaded.Status != domain.DocumentPending {
		t.Fatalf("expected status PENDING after reprocess, got %s", loaded.Status)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := b.Consume(ctxTimeout, bus.TopicDocumentUploaded); err != nil {
		t.Fatalf("expected a re-queued upload event: %v", err)
	}
}
