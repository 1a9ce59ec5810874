// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/northbound/ragcore/internal/domain"
	"github.com/northbound/ragcore/internal/ragerrors"
)

// SQLiteStore persists documents and chunks to a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures its
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open sqlite db: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("store: failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS documents (
		document_id   TEXT NOT NULL,
		tenant_id     TEXT NOT NULL,
		user_id       TEXT NOT NULL,
		storage_ref   TEXT NOT NULL,
		content_type  TEXT NOT NULL,
		status        TEXT NOT NULL,
		failure_cause TEXT NOT NULL DEFAULT '',
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL,
		PRIMARY KEY (tenant_id, document_id)
	);

	CREATE TABLE IF NOT EXISTS chunks (
		chunk_id    TEXT NOT NULL,
		document_id TEXT NOT NULL,
		tenant_id   TEXT NOT NULL,
		ordinal     INTEGER NOT NULL,
		content     TEXT NOT NULL,
		token_count INTEGER NOT NULL,
		metadata    TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (tenant_id, chunk_id)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(tenant_id, document_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateDocument(ctx context.Context, doc domain.Document) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (document_id, tenant_id, user_id, storage_ref, content_type, status, failure_cause, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.DocumentID, doc.TenantID, doc.UserID, doc.StorageRef, doc.ContentType, doc.Status, doc.FailureCause, now, now,
	)
	if err != nil {
		return fmt.Errorf("store: create document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadDocument(ctx context.Context, tenant domain.TenantID, id domain.DocumentID) (domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT document_id, tenant_id, user_id, storage_ref, content_type, status, failure_cause, created_at, updated_at
		 FROM documents WHERE tenant_id = ? AND document_id = ?`,
		tenant, id,
	)

	var doc domain.Document
	err := row.Scan(&doc.DocumentID, &doc.TenantID, &doc.UserID, &doc.StorageRef, &doc.ContentType, &doc.Status, &doc.FailureCause, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.Document{}, ragerrors.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("store: load document: %w", err)
	}

	chunkIDs, err := s.chunkIDsForDocument(ctx, tenant, id)
	if err != nil {
		return domain.Document{}, err
	}
	doc.ChunkIDs = chunkIDs
	return doc, nil
}

func (s *SQLiteStore) chunkIDsForDocument(ctx context.Context, tenant domain.TenantID, documentID domain.DocumentID) ([]domain.ChunkID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id FROM chunks WHERE tenant_id = ? AND document_id = ? ORDER BY ordinal ASC`,
		tenant, documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: load chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []domain.ChunkID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan chunk id: %w", err)
		}
		ids = append(ids, domain.ChunkID(id))
	}
	return ids, nil
}

// UpdateDocumentStatusCAS transitions status only if the row's current
// status equals expected. It distinguishes "no such document" from "status
// didn't match" with two targeted queries so callers get an accurate error.
func (s *SQLiteStore) UpdateDocumentStatusCAS(ctx context.Context, tenant domain.TenantID, id domain.DocumentID, expected, next domain.DocumentStatus, failureCause string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, failure_cause = ?, updated_at = ? WHERE tenant_id = ? AND document_id = ? AND status = ?`,
		next, failureCause, time.Now(), tenant, id, expected,
	)
	if err != nil {
		return fmt.Errorf("store: update document status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update document status: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Nothing updated: figure out whether the document is missing entirely
	// or simply in a different state than expected.
	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE tenant_id = ? AND document_id = ?`, tenant, id).Scan(new(int))
	exists = err == nil
	if !exists {
		return ragerrors.ErrNotFound
	}
	return ragerrors.ErrCASConflict
}

func (s *SQLiteStore) InsertChunks(ctx context.Context, tenant domain.TenantID, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: insert chunks: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (chunk_id, document_id, tenant_id, ordinal, content, token_count, metadata) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("store: insert chunks: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("store: marshal chunk metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ChunkID, c.DocumentID, tenant, c.Ordinal, c.Content, c.TokenCount, string(metaJSON)); err != nil {
			return fmt.Errorf("store: insert chunk %s: %w", c.ChunkID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadChunksByDocument(ctx context.Context, tenant domain.TenantID, documentID domain.DocumentID) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, document_id, tenant_id, ordinal, content, token_count, metadata FROM chunks WHERE tenant_id = ? AND document_id = ? ORDER BY ordinal ASC`,
		tenant, documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: load chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (s *SQLiteStore) LoadChunksByIDs(ctx context.Context, tenant domain.TenantID, ids []domain.ChunkID) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, tenant)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`SELECT chunk_id, document_id, tenant_id, ordinal, content, token_count, metadata FROM chunks WHERE tenant_id = ? AND chunk_id IN (%s)`,
		strings.Join(placeholders, ","),
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: load chunks by ids: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (s *SQLiteStore) DeleteChunksByDocument(ctx context.Context, tenant domain.TenantID, documentID domain.DocumentID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE tenant_id = ? AND document_id = ?`, tenant, documentID)
	if err != nil {
		return fmt.Errorf("store: delete chunks: %w", err)
	}
	return nil
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var metaJSON string
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.TenantID, &c.Ordinal, &c.Content, &c.TokenCount, &metaJSON); err != nil {
			return nil, fmt.Errorf("store: scan chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
			return nil, fmt.Errorf("store: unmarshal chunk metadata: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}
