// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package chunker

import (
	"strings"
	"testing"

	"github.com/northbound/ragcore/internal/domain"
)

func testDoc() domain.Document {
	return domain.Document{DocumentID: "doc-1", TenantID: "tenant-a"}
}

func TestFixedChunkerShortText(t *testing.T) {
	c := FixedChunker{}
	text := "This is a short text that should not be split."

	chunks, err := c.Chunk(testDoc(), text, DefaultOptions())
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != text {
		t.Errorf("content mismatch: got %q want %q", chunks[0].Content, text)
	}
	if chunks[0].Ordinal != 0 {
		t.Errorf("expected ordinal 0, got %d", chunks[0].Ordinal)
	}
}

func TestFixedChunkerLongTextOrdinalsIncrease(t *testing.T) {
	c := FixedChunker{}
	paragraph := "This is a sample paragraph. It contains multiple sentences. Each sentence ends with a period. "
	text := strings.Repeat(paragraph, 40)

	chunks, err := c.Chunk(testDoc(), text, DefaultOptions())
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Ordinal != i {
			t.Errorf("chunk %d: expected ordinal %d, got %d", i, i, ch.Ordinal)
		}
		if ch.Metadata.CharStart < 0 || ch.Metadata.CharEnd > len(text) || ch.Metadata.CharStart >= ch.Metadata.CharEnd {
			t.Errorf("chunk %d: invalid offsets [%d,%d)", i, ch.Metadata.CharStart, ch.Metadata.CharEnd)
		}
		if i > 0 && ch.Metadata.CharStart >= chunks[i-1].Metadata.CharEnd {
			t.Errorf("chunk %d: expected overlap with previous chunk, start=%d prevEnd=%d", i, ch.Metadata.CharStart, chunks[i-1].Metadata.CharEnd)
		}
	}
}

func TestFixedChunkerEmptyText(t *testing.T) {
	c := FixedChunker{}
	chunks, err := c.Chunk(testDoc(), "", DefaultOptions())
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty text, got %d", len(chunks))
	}
}

func TestFixedChunkerWhitespaceOnlyText(t *testing.T) {
	c := FixedChunker{}
	chunks, err := c.Chunk(testDoc(), "   \n\n\t  ", DefaultOptions())
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for whitespace-only text, got %d", len(chunks))
	}
}

func TestSemanticChunkerRespectsMaxTokens(t *testing.T) {
	c := SemanticChunker{}
	text := strings.Repeat("This is sentence one. This is sentence two. This is sentence three. ", 30)

	opts := Options{Strategy: StrategySemantic, MaxTokens: 50, MinTokens: 10}
	chunks, err := c.Chunk(testDoc(), text, opts)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Ordinal != i {
			t.Errorf("chunk %d: expected ordinal %d, got %d", i, i, ch.Ordinal)
		}
		if ch.TokenCount > opts.MaxTokens {
			t.Errorf("chunk %d: %d tokens exceeds MaxTokens %d", i, ch.TokenCount, opts.MaxTokens)
		}
	}
}

func TestSlidingChunkerUniformStride(t *testing.T) {
	c := SlidingChunker{}
	text := strings.Repeat("x", 1000)

	opts := Options{Strategy: StrategySliding, MaxTokens: 50, OverlapTokens: 10}
	chunks, err := c.Chunk(testDoc(), text, opts)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(chunks))
	}
	stride := (opts.MaxTokens - opts.OverlapTokens) * 4
	for i, ch := range chunks {
		if ch.Ordinal != i {
			t.Errorf("chunk %d: expected ordinal %d, got %d", i, i, ch.Ordinal)
		}
		if ch.Metadata.CharStart != i*stride {
			t.Errorf("chunk %d: expected start %d, got %d", i, i*stride, ch.Metadata.CharStart)
		}
	}
}

func TestNewUnknownStrategy(t *testing.T) {
	if _, err := New("bogus"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
