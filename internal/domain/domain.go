// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package domain holds the entities shared across the query and
// document-processing pipelines: tenants, documents, chunks, embedding
// vectors, conversations, and the response shape returned to callers. Every
// entity that can be tenant-scoped carries a TenantID field. The stores,
// caches and vector index keep tenants apart by keying their data on
// TenantID; RequireTenantMatch is an explicit caller/owner check on top.
package domain

import (
	"time"

	"github.com/northbound/ragcore/internal/ragerrors"
)

// TenantID, UserID, ConversationID, DocumentID and ChunkID are opaque,
// globally unique identifiers. Each is a distinct named string type: an
// untyped string constant converts implicitly, and any other
// collaborator-assigned identifier (a google/uuid string, for instance)
// needs a plain type conversion.
type (
	TenantID       string
	UserID         string
	ConversationID string
	DocumentID     string
	ChunkID        string
)

// RequireTenantMatch rejects any operation where the caller's tenant does
// not match the entity's tenant, or where either tenant is empty, with
// ragerrors.ErrTenantMismatch.
func RequireTenantMatch(caller, owner TenantID) error {
	if caller == "" || owner == "" || caller != owner {
		return ragerrors.ErrTenantMismatch
	}
	return nil
}

// DocumentStatus is the totally-ordered lifecycle state of a Document (§3).
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "PENDING"
	DocumentProcessing DocumentStatus = "PROCESSING"
	DocumentCompleted  DocumentStatus = "COMPLETED"
	DocumentFailed     DocumentStatus = "FAILED"
)

// Document is the unit of ingestion. Chunks are owned by the Document but
// referenced by identifier only — the Document does not hold Chunk values
// directly (§9: no bidirectional pointers).
type Document struct {
	DocumentID   DocumentID
	TenantID     TenantID
	UserID       UserID
	StorageRef   string
	ContentType  string
	Status       DocumentStatus
	FailureCause string
	ChunkIDs     []ChunkID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ChunkMetadata carries original-position and provenance information
// attached to a Chunk at creation time (§4.5).
type ChunkMetadata struct {
	CharStart int
	CharEnd   int
	Title     string
	Extra     map[string]string
}

// Chunk is immutable after creation; (DocumentID, Ordinal) is a secondary
// unique key (§3).
type Chunk struct {
	ChunkID    ChunkID
	DocumentID DocumentID
	TenantID   TenantID
	Ordinal    int
	Content    string
	TokenCount int
	Metadata   ChunkMetadata
}

// EmbeddingVector is exclusively owned by the Vector Index; it is never
// mutated in place — re-embedding deletes the old entry and inserts a new
// one (§3).
type EmbeddingVector struct {
	ChunkID   ChunkID
	TenantID  TenantID
	ModelName string
	Vector    []float32
	CreatedAt time.Time
}

// ConversationExchange is immutable once appended to a Conversation.
type ConversationExchange struct {
	ExchangeID     string
	UserID         UserID
	UserQuery      string
	AIResponse     string
	SourceChunkIDs []ChunkID
	Timestamp      time.Time
}

// Conversation holds a bounded, TTL'd exchange log for one user's session
// against one tenant.
type Conversation struct {
	ConversationID ConversationID
	TenantID       TenantID
	UserID         UserID
	Exchanges      []ConversationExchange
	CreatedAt      time.Time
	LastUpdatedAt  time.Time
}

// ResponseStatus is the outcome of a query (§3).
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "SUCCESS"
	StatusEmpty   ResponseStatus = "EMPTY"
	StatusFailed  ResponseStatus = "FAILED"
)

// SourceChunk is a single retrieved-and-used chunk surfaced to the caller.
type SourceChunk struct {
	DocumentID DocumentID
	ChunkID    ChunkID
	Title      string
	Excerpt    string
	Score      float32
}

// ResponseMetrics carries the best-effort timing and provenance data
// attached to every RagResponse (§6 Query output, §4.11 step 10).
type ResponseMetrics struct {
	RetrievalMs      int64
	AssemblyMs       int64
	GenerationMs     int64
	ChunksRetrieved  int
	ChunksUsed       int
	TokensGenerated  int
	AvgRelevance     float32
	ProviderUsed     string
	FromCache        bool
}

// RagResponse is the top-level result of a query (§3).
type RagResponse struct {
	Status  ResponseStatus
	Answer  string
	Sources []SourceChunk
	Metrics ResponseMetrics
	Error   string
}
