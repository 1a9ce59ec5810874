// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package embedengine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/northbound/ragcore/internal/cache"
	"github.com/northbound/ragcore/internal/domain"
	"github.com/northbound/ragcore/internal/logging"
	"github.com/northbound/ragcore/internal/providers"
	"github.com/northbound/ragcore/internal/ragerrors"
	"github.com/northbound/ragcore/internal/vectorindex"
)

const (
	initialBackoff = 250 * time.Millisecond
	backoffFactor  = 2
	maxBackoff     = 5 * time.Second
	maxAttempts    = 3
)

// ChunkResult is the per-chunk outcome of an embed operation.
type ChunkResult struct {
	ChunkID domain.ChunkID
	Vector  []float32
	Err     error
}

// BatchOutcome summarizes an EmbedChunks call. It is PARTIAL if at least
// one chunk succeeded and at least one failed, FAILED if all failed, and
// COMPLETE if all succeeded.
type BatchOutcome string

const (
	OutcomeComplete BatchOutcome = "COMPLETE"
	OutcomePartial  BatchOutcome = "PARTIAL"
	OutcomeFailed   BatchOutcome = "FAILED"
)

// BatchResult is the overall result of embedding a set of chunks, in the
// same order as the input.
type BatchResult struct {
	Results []ChunkResult
	Outcome BatchOutcome
}

// Engine drives embedding generation for queries and chunks, with
// per-tenant bounded concurrency and bounded retry on transient provider
// failures.
type Engine struct {
	provider      providers.EmbeddingProvider
	index         vectorindex.Index
	embedCache    *cache.EmbeddingCache
	modelName     string
	batchSize     int
	concurrency   map[domain.TenantID]chan struct{}
	concurrencyMu sync.Mutex
	maxPerTenant  int
}

// Config configures a new Engine.
type Config struct {
	Provider           providers.EmbeddingProvider
	Index              vectorindex.Index
	Cache              *cache.EmbeddingCache
	BatchSize          int
	PerTenantConcurrency int
}

// New builds an embedding engine.
func New(cfg Config) *Engine {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	perTenant := cfg.PerTenantConcurrency
	if perTenant <= 0 {
		perTenant = 4
	}
	return &Engine{
		provider:     cfg.Provider,
		index:        cfg.Index,
		embedCache:   cfg.Cache,
		modelName:    cfg.Provider.Name(),
		batchSize:    batchSize,
		concurrency:  make(map[domain.TenantID]chan struct{}),
		maxPerTenant: perTenant,
	}
}

// ModelName returns the active embedding model identifier.
func (e *Engine) ModelName() string { return e.modelName }

// Index returns the vector index this engine is configured against, so
// callers can upsert embedded vectors once EmbedChunks succeeds.
func (e *Engine) Index() vectorindex.Index { return e.index }

// Probe reports whether the underlying embedding provider is reachable.
func (e *Engine) Probe(ctx context.Context) bool { return e.provider.Probe(ctx) }

func (e *Engine) tenantSlots(tenant domain.TenantID) chan struct{} {
	e.concurrencyMu.Lock()
	defer e.concurrencyMu.Unlock()
	slots, ok := e.concurrency[tenant]
	if !ok {
		slots = make(chan struct{}, e.maxPerTenant)
		e.concurrency[tenant] = slots
	}
	return slots
}

// EmbedQuery embeds a single ad-hoc query string. Queries are not cached:
// the embedding cache is keyed for chunk content reused across documents,
// and query text is rarely repeated verbatim.
func (e *Engine) EmbedQuery(ctx context.Context, tenant domain.TenantID, text string) ([]float32, error) {
	vectors, err := e.embedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedChunks embeds a set of chunks for a tenant's document, honoring the
// per-tenant concurrency cap by splitting into sub-batches of at most
// batchSize chunks each, run up to maxPerTenant at a time. Each chunk's
// embedding is checked against the content cache first.
func (e *Engine) EmbedChunks(ctx context.Context, tenant domain.TenantID, chunks []domain.Chunk) BatchResult {
	results := make([]ChunkResult, len(chunks))

	type job struct {
		indices []int
		texts   []string
	}

	var jobs []job
	var cur job
	for i, c := range chunks {
		if vec, ok := e.cacheGet(ctx, tenant, c.Content); ok {
			results[i] = ChunkResult{ChunkID: c.ChunkID, Vector: vec}
			continue
		}
		cur.indices = append(cur.indices, i)
		cur.texts = append(cur.texts, c.Content)
		if len(cur.texts) >= e.batchSize {
			jobs = append(jobs, cur)
			cur = job{}
		}
	}
	if len(cur.texts) > 0 {
		jobs = append(jobs, cur)
	}

	slots := e.tenantSlots(tenant)
	var wg sync.WaitGroup
	for _, j := range jobs {
		j := j
		slots <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-slots }()

			vectors, err := e.embedWithRetry(ctx, j.texts)
			if err != nil {
				for n, idx := range j.indices {
					_ = n
					results[idx] = ChunkResult{ChunkID: chunks[idx].ChunkID, Err: err}
				}
				return
			}
			for n, idx := range j.indices {
				results[idx] = ChunkResult{ChunkID: chunks[idx].ChunkID, Vector: vectors[n]}
				e.cachePut(ctx, tenant, chunks[idx].Content, vectors[n])
			}
		}()
	}
	wg.Wait()

	return BatchResult{Results: results, Outcome: classifyOutcome(results)}
}

// ReEmbed deletes prior vectors for a document and regenerates them from
// scratch; there is no partial-update path.
func (e *Engine) ReEmbed(ctx context.Context, tenant domain.TenantID, documentID domain.DocumentID, chunks []domain.Chunk) BatchResult {
	if err := e.index.DeleteDocument(ctx, tenant, e.modelName, documentID); err != nil {
		logging.Warnf("embedengine: failed to delete prior vectors for %s: %v", documentID, err)
	}
	result := e.EmbedChunks(ctx, tenant, chunks)
	for i, r := range result.Results {
		if r.Err != nil {
			continue
		}
		meta := map[string]string{"document_id": string(documentID), "content": chunks[i].Content}
		if err := e.index.Upsert(ctx, tenant, e.modelName, r.ChunkID, r.Vector, meta); err != nil {
			result.Results[i].Err = err
		}
	}
	result.Outcome = classifyOutcome(result.Results)
	return result
}

func classifyOutcome(results []ChunkResult) BatchOutcome {
	var ok, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}
	switch {
	case failed == 0:
		return OutcomeComplete
	case ok == 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

func (e *Engine) cacheGet(ctx context.Context, tenant domain.TenantID, content string) ([]float32, bool) {
	if e.embedCache == nil {
		return nil, false
	}
	return e.embedCache.Get(ctx, tenant, e.modelName, content)
}

func (e *Engine) cachePut(ctx context.Context, tenant domain.TenantID, content string, vec []float32) {
	if e.embedCache == nil {
		return
	}
	e.embedCache.Put(ctx, tenant, e.modelName, content, vec)
}

// embedWithRetry calls the provider with bounded exponential backoff on
// transient errors: initial 250ms, factor 2, capped at 5s, at most 3
// attempts total. Non-transient errors are returned immediately.
func (e *Engine) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		vectors, err := e.provider.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !ragerrors.Transient(err) || attempt == maxAttempts {
			break
		}

		jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
		wait := backoff + jitter
		logging.Warnf("embedengine: attempt %d/%d failed (%v), retrying in %s", attempt, maxAttempts, err, wait)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}

		backoff *= backoffFactor
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return nil, lastErr
}
