// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package orchestrator implements the top-level query pipeline: it composes
// the response cache, query optimizer, conversation store, embedding
// engine, vector index, context assembler and chat provider into a single
// request/response (or streaming) call.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/northbound/ragcore/internal/assembler"
	"github.com/northbound/ragcore/internal/cache"
	"github.com/northbound/ragcore/internal/convstore"
	"github.com/northbound/ragcore/internal/domain"
	"github.com/northbound/ragcore/internal/embedengine"
	"github.com/northbound/ragcore/internal/logging"
	"github.com/northbound/ragcore/internal/providers"
	"github.com/northbound/ragcore/internal/queryopt"
	"github.com/northbound/ragcore/internal/ragerrors"
	"github.com/northbound/ragcore/internal/vectorindex"
)

// QueryOptions carries the per-request tunables a caller may override; zero
// values fall back to the configured defaults.
type QueryOptions struct {
	ConversationID     domain.ConversationID
	UserID             domain.UserID
	MaxChunks          int
	RelevanceThreshold float32
	MaxTokens          int
	SystemPrompt       string
	Timeout            time.Duration
	Stream             bool

	// Filter restricts retrieval to chunks whose metadata matches every
	// key==value pair, e.g. {"document_id": "..."} to scope a query to one
	// document. Nil matches everything.
	Filter map[string]string
}

// Config wires the orchestrator's collaborators and tunable defaults.
type Config struct {
	ResponseCache *cache.ResponseCache
	Conversations *convstore.Store
	Embedder      *embedengine.Engine
	Index         vectorindex.Index
	Chat          providers.ChatStreamingProvider

	QueryOptions     queryopt.Options
	DefaultMaxChunks int
	DefaultThreshold float32
	DefaultMaxTokens int
	DefaultTimeout   time.Duration
	DefaultSystemPrompt string
	IncludeMetadata  bool
	ConversationWindow int
}

// Orchestrator runs the ten-step query algorithm described in the core
// spec's query path section.
type Orchestrator struct {
	cfg Config
}

// New builds an Orchestrator from its collaborators and defaults.
func New(cfg Config) *Orchestrator {
	if cfg.DefaultMaxChunks <= 0 {
		cfg.DefaultMaxChunks = 10
	}
	if cfg.DefaultThreshold == 0 {
		cfg.DefaultThreshold = 0.7
	}
	if cfg.DefaultMaxTokens <= 0 {
		cfg.DefaultMaxTokens = 4000
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	if cfg.DefaultSystemPrompt == "" {
		cfg.DefaultSystemPrompt = "You are a helpful assistant. Answer using only the provided context. If the context does not contain the answer, say so."
	}
	if cfg.ConversationWindow <= 0 {
		cfg.ConversationWindow = 5
	}
	return &Orchestrator{cfg: cfg}
}

func (o *Orchestrator) resolveOptions(opts QueryOptions) QueryOptions {
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = o.cfg.DefaultMaxChunks
	}
	if opts.RelevanceThreshold == 0 {
		opts.RelevanceThreshold = o.cfg.DefaultThreshold
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = o.cfg.DefaultMaxTokens
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = o.cfg.DefaultSystemPrompt
	}
	if opts.Timeout <= 0 {
		opts.Timeout = o.cfg.DefaultTimeout
	}
	return opts
}

func failed(reason string) domain.RagResponse {
	return domain.RagResponse{Status: domain.StatusFailed, Error: reason}
}

// Query runs the non-streaming query path (§4.11 steps 1-10).
func (o *Orchestrator) Query(ctx context.Context, tenant domain.TenantID, query string, opts QueryOptions) domain.RagResponse {
	opts = o.resolveOptions(opts)
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	normalized := queryopt.Optimize(query, o.cfg.QueryOptions)

	// Step 1: cache check, keyed on the same normalization the rest of the
	// pipeline uses so a cache hit and a cache miss never diverge on key.
	if o.cfg.ResponseCache != nil {
		if resp, ok := o.cfg.ResponseCache.Get(ctx, tenant, normalized); ok {
			resp.Metrics.FromCache = true
			return resp
		}
	}

	// Step 3: contextualize against prior conversation turns, if any.
	qc := normalized
	if opts.ConversationID != "" && o.cfg.Conversations != nil {
		qc = o.cfg.Conversations.Contextualize(ctx, tenant, opts.ConversationID, opts.UserID, normalized, o.cfg.ConversationWindow)
	}

	retrievalStart := time.Now()

	// Step 4: embed the (possibly contextualized) query.
	vq, err := o.cfg.Embedder.EmbedQuery(ctx, tenant, qc)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return failed("deadline exceeded")
		}
		logging.Errorf("orchestrator: embed query failed for tenant %s: %v", tenant, err)
		return failed(fmt.Sprintf("embedding unavailable: %v", err))
	}

	// Step 5: retrieve nearest neighbors.
	hits, err := o.cfg.Index.TopK(ctx, tenant, o.cfg.Embedder.ModelName(), vq, opts.MaxChunks, opts.RelevanceThreshold, opts.Filter)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return failed("deadline exceeded")
		}
		logging.Errorf("orchestrator: retrieval failed for tenant %s: %v", tenant, err)
		return failed(fmt.Sprintf("%v", ragerrors.ErrVectorStoreUnavailable))
	}
	retrievalMs := time.Since(retrievalStart).Milliseconds()

	if len(hits) == 0 {
		resp := domain.RagResponse{
			Status: domain.StatusEmpty,
			Metrics: domain.ResponseMetrics{
				RetrievalMs:  retrievalMs,
				ProviderUsed: o.cfg.Embedder.ModelName(),
			},
		}
		o.cachePut(ctx, tenant, normalized, resp)
		return resp
	}

	chunksByID := o.chunksByID(hits)

	// Step 6: assemble the grounded context.
	assembleStart := time.Now()
	assembled := assembler.Assemble(hits, chunksByID, assembler.Options{
		MaxTokens:          opts.MaxTokens,
		RelevanceThreshold: opts.RelevanceThreshold,
		IncludeMetadata:    o.cfg.IncludeMetadata,
	})
	assemblyMs := time.Since(assembleStart).Milliseconds()

	// Step 7: generate.
	generateStart := time.Now()
	answer, err := o.cfg.Chat.Chat(ctx, opts.SystemPrompt, userPrompt(qc, assembled.Context), providers.ChatOptions{})
	generationMs := time.Since(generateStart).Milliseconds()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return failed("deadline exceeded")
		}
		logging.Errorf("orchestrator: generation failed for tenant %s: %v", tenant, err)
		return failed(fmt.Sprintf("generation unavailable: %v", err))
	}

	resp := domain.RagResponse{
		Status:  domain.StatusSuccess,
		Answer:  answer,
		Sources: assembled.Sources,
		Metrics: domain.ResponseMetrics{
			RetrievalMs:     retrievalMs,
			AssemblyMs:      assemblyMs,
			GenerationMs:    generationMs,
			ChunksRetrieved: len(hits),
			ChunksUsed:      assembled.Stats.ChunksUsed,
			TokensGenerated: assembled.Stats.TokensUsed,
			AvgRelevance:    assembled.Stats.AvgRelevance,
			ProviderUsed:    o.cfg.Chat.Name(),
		},
	}

	// Step 8: record the exchange. A failure here degrades conversation
	// history, not the answer already produced, so it never turns a
	// successful response into a FAILED one.
	o.recordExchange(ctx, tenant, opts, normalized, answer, hits)

	// Step 9: cache write.
	o.cachePut(ctx, tenant, normalized, resp)

	return resp
}

// QueryStream runs the streaming query path. Steps 8-9 (record, cache
// write) only run once the stream completes without the caller cancelling
// ctx; on cancellation they are skipped entirely, since a partial answer is
// not a result worth recording or caching.
func (o *Orchestrator) QueryStream(ctx context.Context, tenant domain.TenantID, query string, opts QueryOptions) (<-chan providers.StreamChunk, error) {
	opts = o.resolveOptions(opts)

	normalized := queryopt.Optimize(query, o.cfg.QueryOptions)

	qc := normalized
	if opts.ConversationID != "" && o.cfg.Conversations != nil {
		qc = o.cfg.Conversations.Contextualize(ctx, tenant, opts.ConversationID, opts.UserID, normalized, o.cfg.ConversationWindow)
	}

	vq, err := o.cfg.Embedder.EmbedQuery(ctx, tenant, qc)
	if err != nil {
		return nil, fmt.Errorf("embedding unavailable: %w", err)
	}

	hits, err := o.cfg.Index.TopK(ctx, tenant, o.cfg.Embedder.ModelName(), vq, opts.MaxChunks, opts.RelevanceThreshold, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w", ragerrors.ErrVectorStoreUnavailable)
	}
	if len(hits) == 0 {
		out := make(chan providers.StreamChunk, 1)
		out <- providers.StreamChunk{Done: true}
		close(out)
		return out, nil
	}

	chunksByID := o.chunksByID(hits)
	assembled := assembler.Assemble(hits, chunksByID, assembler.Options{
		MaxTokens:          opts.MaxTokens,
		RelevanceThreshold: opts.RelevanceThreshold,
		IncludeMetadata:    o.cfg.IncludeMetadata,
	})

	upstream, err := o.cfg.Chat.ChatStream(ctx, opts.SystemPrompt, userPrompt(qc, assembled.Context), providers.ChatOptions{})
	if err != nil {
		return nil, fmt.Errorf("generation unavailable: %w", err)
	}

	out := make(chan providers.StreamChunk)
	go func() {
		defer close(out)
		var full string
		for chunk := range upstream {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.Err != nil {
				return
			}
			full += chunk.Text
			if chunk.Done {
				if ctx.Err() != nil {
					return
				}
				o.recordExchange(ctx, tenant, opts, normalized, full, hits)
				o.cachePut(ctx, tenant, normalized, domain.RagResponse{
					Status:  domain.StatusSuccess,
					Answer:  full,
					Sources: assembled.Sources,
				})
			}
		}
	}()
	return out, nil
}

func (o *Orchestrator) recordExchange(ctx context.Context, tenant domain.TenantID, opts QueryOptions, query, answer string, hits []vectorindex.ScoredChunk) {
	if opts.ConversationID == "" || opts.UserID == "" || o.cfg.Conversations == nil {
		return
	}
	chunkIDs := make([]domain.ChunkID, len(hits))
	for i, h := range hits {
		chunkIDs[i] = h.ChunkID
	}
	exchange := domain.ConversationExchange{
		UserID:         opts.UserID,
		UserQuery:      query,
		AIResponse:     answer,
		SourceChunkIDs: chunkIDs,
	}
	if err := o.cfg.Conversations.Append(ctx, tenant, opts.ConversationID, opts.UserID, exchange); err != nil {
		logging.Warnf("orchestrator: failed to record exchange for conversation %s: %v", opts.ConversationID, err)
	}
}

func (o *Orchestrator) cachePut(ctx context.Context, tenant domain.TenantID, normalized string, resp domain.RagResponse) {
	if o.cfg.ResponseCache == nil {
		return
	}
	if resp.Status == domain.StatusFailed {
		return
	}
	o.cfg.ResponseCache.Put(ctx, tenant, normalized, resp)
}

// chunksByID reconstructs per-chunk content from hit metadata. The vector
// index stores a "content" field alongside each vector precisely so the
// query path never needs a second round trip to the relational store just
// to assemble context.
func (o *Orchestrator) chunksByID(hits []vectorindex.ScoredChunk) map[domain.ChunkID]domain.Chunk {
	out := make(map[domain.ChunkID]domain.Chunk, len(hits))
	for _, h := range hits {
		out[h.ChunkID] = domain.Chunk{
			ChunkID:    h.ChunkID,
			DocumentID: h.DocumentID,
			Content:    h.Metadata["content"],
			Metadata: domain.ChunkMetadata{
				Title: h.Metadata["title"],
			},
		}
	}
	return out
}

func userPrompt(query, context string) string {
	if context == "" {
		return query
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", context, query)
}

// HealthReport aggregates the reachability of the C1 providers and the C3
// vector index; cmd/ragcore logs it at startup. There is no HTTP handler
// exposing this; it is a library-level aggregate a caller wires into its own
// readiness surface.
type HealthReport struct {
	VectorIndex      error
	EmbeddingProvider bool
	ChatProvider      bool
}

// Healthy reports whether every checked collaborator is reachable.
func (h HealthReport) Healthy() bool {
	return h.VectorIndex == nil && h.EmbeddingProvider && h.ChatProvider
}

// CheckHealth probes the vector index, the embedding provider and the chat
// provider the orchestrator was built with.
func (o *Orchestrator) CheckHealth(ctx context.Context) HealthReport {
	var report HealthReport
	if o.cfg.Index != nil {
		report.VectorIndex = o.cfg.Index.HealthCheck(ctx)
	}
	if o.cfg.Chat != nil {
		report.ChatProvider = o.cfg.Chat.Probe(ctx)
	}
	if o.cfg.Embedder != nil {
		report.EmbeddingProvider = o.cfg.Embedder.Probe(ctx)
	}
	return report
}
