// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package chunker

import (
	"strings"

	"github.com/northbound/ragcore/internal/domain"
)

// SlidingChunker emits fixed-size, fixed-stride windows without trying to
// respect sentence boundaries, trading coherence for uniform, predictable
// overlap between adjacent chunks.
type SlidingChunker struct{}

func (SlidingChunker) Chunk(doc domain.Document, text string, opts Options) ([]domain.Chunk, error) {
	if isBlank(text) {
		return nil, nil
	}

	windowChars := opts.MaxTokens * 4
	strideChars := windowChars - opts.OverlapTokens*4
	if windowChars <= 0 {
		windowChars = 1000
	}
	if strideChars <= 0 {
		strideChars = windowChars
	}

	var chunks []domain.Chunk
	ordinal := 0
	textLen := len(text)

	for start := 0; start < textLen; start += strideChars {
		end := start + windowChars
		if end > textLen {
			end = textLen
		}
		content := strings.TrimSpace(text[start:end])
		if content != "" {
			chunks = append(chunks, buildChunk(doc, ordinal, content, start, end))
			ordinal++
		}
		if end >= textLen {
			break
		}
	}

	return chunks, nil
}
