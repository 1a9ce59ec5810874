// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package docpipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/northbound/ragcore/internal/bus"
	"github.com/northbound/ragcore/internal/chunker"
	"github.com/northbound/ragcore/internal/domain"
	"github.com/northbound/ragcore/internal/embedengine"
	"github.com/northbound/ragcore/internal/extract"
	"github.com/northbound/ragcore/internal/logging"
	"github.com/northbound/ragcore/internal/ragerrors"
	"github.com/northbound/ragcore/internal/store"
	"github.com/northbound/ragcore/internal/tenantlimit"
)

// DocumentReader fetches a document's raw bytes from wherever it is stored.
// Blob storage itself is out of scope; callers supply an adapter.
type DocumentReader interface {
	ReadDocument(ctx context.Context, storageRef string) ([]byte, error)
}

// UploadedEvent is the document-uploaded message payload.
type UploadedEvent struct {
	TenantID   domain.TenantID   `json:"tenantId"`
	DocumentID domain.DocumentID `json:"documentId"`
}

// CompletedEvent is the embedding-completed message payload.
type CompletedEvent struct {
	TenantID       domain.TenantID   `json:"tenantId"`
	DocumentID     domain.DocumentID `json:"documentId"`
	ChunksEmbedded int               `json:"chunksEmbedded"`
}

// ChunkFailure names one chunk that failed to embed or upsert, and why.
type ChunkFailure struct {
	ChunkID domain.ChunkID `json:"chunkId"`
	Error   string         `json:"error"`
}

// FailedEvent is the document-failed message payload. ChunkErrors is
// populated when the failure came from a partial embedding outcome, so
// consumers can see exactly which chunks need another attempt.
type FailedEvent struct {
	TenantID    domain.TenantID   `json:"tenantId"`
	DocumentID  domain.DocumentID `json:"documentId"`
	Reason      string            `json:"reason"`
	ChunkErrors []ChunkFailure    `json:"chunkErrors,omitempty"`
}

// Config configures a Pipeline.
type Config struct {
	Bus         bus.Bus
	Store       store.Store
	Reader      DocumentReader
	Embedder    *embedengine.Engine
	ChunkStrategy chunker.Strategy
	ChunkOptions  chunker.Options
	Limiter     *tenantlimit.Limiter
}

// Pipeline implements the six-step document processing state machine:
// idempotency check, CAS PENDING -> PROCESSING, extract, chunk + persist,
// embed + transition, ack.
type Pipeline struct {
	bus      bus.Bus
	store    store.Store
	reader   DocumentReader
	embedder *embedengine.Engine
	strategy chunker.Strategy
	chunkOpts chunker.Options
	limiter  *tenantlimit.Limiter
}

// New builds a document pipeline.
func New(cfg Config) *Pipeline {
	strategy := cfg.ChunkStrategy
	if strategy == "" {
		strategy = chunker.StrategyFixed
	}
	opts := cfg.ChunkOptions
	if opts.MaxTokens == 0 {
		opts = chunker.DefaultOptions()
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = tenantlimit.New(4)
	}
	return &Pipeline{
		bus:       cfg.Bus,
		store:     cfg.Store,
		reader:    cfg.Reader,
		embedder:  cfg.Embedder,
		strategy:  strategy,
		chunkOpts: opts,
		limiter:   limiter,
	}
}

// Run consumes document-uploaded events until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		msg, err := p.bus.Consume(ctx, bus.TopicDocumentUploaded)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			logging.Warnf("docpipeline: consume error: %v, continuing", err)
			continue
		}

		var event UploadedEvent
		if err := bus.Decode(msg, &event); err != nil {
			logging.Warnf("docpipeline: dropping undecodable event: %v", err)
			continue
		}

		release, err := p.limiter.Acquire(ctx, event.TenantID)
		if err != nil {
			return nil
		}
		go func() {
			defer release()
			p.process(ctx, event.TenantID, event.DocumentID)
		}()
	}
}

// process runs the full pipeline for one document. It is idempotent: a
// redelivered message for an already-COMPLETED or already-PROCESSING
// document is a no-op, which is what makes at-least-once delivery safe.
func (p *Pipeline) process(ctx context.Context, tenant domain.TenantID, documentID domain.DocumentID) {
	doc, err := p.store.LoadDocument(ctx, tenant, documentID)
	if err != nil {
		logging.Errorf("docpipeline: load document %s failed: %v", documentID, err)
		return
	}

	if doc.Status != domain.DocumentPending {
		logging.Debugf("docpipeline: document %s is %s, skipping (idempotent redelivery)", documentID, doc.Status)
		return
	}

	if err := p.store.UpdateDocumentStatusCAS(ctx, tenant, documentID, domain.DocumentPending, domain.DocumentProcessing, ""); err != nil {
		if errors.Is(err, ragerrors.ErrCASConflict) {
			logging.Debugf("docpipeline: document %s already claimed by another worker", documentID)
			return
		}
		logging.Errorf("docpipeline: CAS to PROCESSING failed for %s: %v", documentID, err)
		return
	}

	if err := p.runSteps(ctx, tenant, doc); err != nil {
		if errors.Is(err, ragerrors.ErrVectorStoreUnavailable) {
			// Transient infrastructure condition: leave the document in
			// PROCESSING so a future redelivery of the same upload event
			// picks it up again, rather than terminating it as FAILED.
			logging.Warnf("docpipeline: document %s left in PROCESSING pending vector store recovery: %v", documentID, err)
			return
		}
		p.fail(ctx, tenant, documentID, err)
		return
	}
}

func (p *Pipeline) runSteps(ctx context.Context, tenant domain.TenantID, doc domain.Document) error {
	content, err := p.reader.ReadDocument(ctx, doc.StorageRef)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	text, err := extract.Extract(doc.ContentType, content)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	chunkerImpl, err := chunker.New(p.strategy)
	if err != nil {
		return fmt.Errorf("chunker: %w", err)
	}
	chunks, err := chunkerImpl.Chunk(doc, text, p.chunkOpts)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no chunks produced", ragerrors.ErrEmptyDocument)
	}
	for i := range chunks {
		chunks[i].ChunkID = domain.ChunkID(fmt.Sprintf("%s-%d", doc.DocumentID, chunks[i].Ordinal))
	}

	if err := p.store.InsertChunks(ctx, tenant, chunks); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}

	result := p.embedder.EmbedChunks(ctx, tenant, chunks)

	model := p.embedder.ModelName()
	embedded := 0
	upsertAttempts, upsertFailures := 0, 0
	var chunkErrors []ChunkFailure
	for i, r := range result.Results {
		if r.Err != nil {
			logging.Warnf("docpipeline: chunk %s failed to embed: %v", r.ChunkID, r.Err)
			chunkErrors = append(chunkErrors, ChunkFailure{ChunkID: r.ChunkID, Error: r.Err.Error()})
			continue
		}
		meta := map[string]string{
			"document_id": string(doc.DocumentID),
			"content":     chunks[i].Content,
		}
		upsertAttempts++
		if err := p.embedder.Index().Upsert(ctx, tenant, model, r.ChunkID, r.Vector, meta); err != nil {
			logging.Warnf("docpipeline: failed to upsert vector for %s: %v", r.ChunkID, err)
			upsertFailures++
			chunkErrors = append(chunkErrors, ChunkFailure{ChunkID: r.ChunkID, Error: err.Error()})
			continue
		}
		embedded++
	}

	if result.Outcome == embedengine.OutcomeComplete && upsertAttempts > 0 && upsertFailures == upsertAttempts {
		return fmt.Errorf("%w: all vector upserts failed for document %s", ragerrors.ErrVectorStoreUnavailable, doc.DocumentID)
	}

	if result.Outcome != embedengine.OutcomeComplete {
		// FAILED or PARTIAL: at least one chunk never made it into the
		// index. Vectors that did embed and upsert successfully above are
		// retained as-is; the document is marked FAILED rather than
		// COMPLETED and no embedding-completed event is emitted.
		cause := fmt.Errorf("%w: %d/%d chunks failed to embed or index", ragerrors.ErrProviderUnavailable, len(result.Results)-embedded, len(result.Results))
		p.failWithChunks(ctx, tenant, doc.DocumentID, cause, chunkErrors)
		return nil
	}

	if err := p.store.UpdateDocumentStatusCAS(ctx, tenant, doc.DocumentID, domain.DocumentProcessing, domain.DocumentCompleted, ""); err != nil {
		return fmt.Errorf("finalize status: %w", err)
	}

	if err := p.bus.Publish(ctx, bus.TopicEmbeddingCompleted, CompletedEvent{TenantID: tenant, DocumentID: doc.DocumentID, ChunksEmbedded: embedded}); err != nil {
		logging.Warnf("docpipeline: failed to publish completion event for %s: %v", doc.DocumentID, err)
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, tenant domain.TenantID, documentID domain.DocumentID, cause error) {
	p.failWithChunks(ctx, tenant, documentID, cause, nil)
}

func (p *Pipeline) failWithChunks(ctx context.Context, tenant domain.TenantID, documentID domain.DocumentID, cause error, chunkErrors []ChunkFailure) {
	logging.Errorf("docpipeline: document %s failed: %v", documentID, cause)
	if err := p.store.UpdateDocumentStatusCAS(ctx, tenant, documentID, domain.DocumentProcessing, domain.DocumentFailed, cause.Error()); err != nil {
		logging.Errorf("docpipeline: failed to mark %s as FAILED: %v", documentID, err)
	}
	event := FailedEvent{TenantID: tenant, DocumentID: documentID, Reason: cause.Error(), ChunkErrors: chunkErrors}
	if err := p.bus.Publish(ctx, bus.TopicDocumentFailed, event); err != nil {
		logging.Warnf("docpipeline: failed to publish failure event for %s: %v", documentID, err)
	}
}

// Reprocess re-attempts a FAILED document as a fresh PENDING attempt,
// clearing its prior chunks first since the chunking strategy or content
// may have changed since the last try.
func (p *Pipeline) Reprocess(ctx context.Context, tenant domain.TenantID, documentID domain.DocumentID) error {
	doc, err := p.store.LoadDocument(ctx, tenant, documentID)
	if err != nil {
		return fmt.Errorf("reprocess: load document: %w", err)
	}
	if doc.Status != domain.DocumentFailed {
		return fmt.Errorf("%w: document %s is %s, not FAILED", ragerrors.ErrInvariantViolated, documentID, doc.Status)
	}

	if err := p.store.DeleteChunksByDocument(ctx, tenant, documentID); err != nil {
		return fmt.Errorf("reprocess: clear chunks: %w", err)
	}
	if err := p.store.UpdateDocumentStatusCAS(ctx, tenant, documentID, domain.DocumentFailed, domain.DocumentPending, ""); err != nil {
		return fmt.Errorf("reprocess: reset status: %w", err)
	}

	return p.bus.Publish(ctx, bus.TopicDocumentUploaded, UploadedEvent{TenantID: tenant, DocumentID: documentID})
}
