// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package chunker

import (
	"strings"

	"github.com/northbound/ragcore/internal/domain"
)

// FixedChunker splits text into token-bounded windows with overlap, trying
// to avoid cutting mid-sentence, the way the original character-window
// splitter did.
type FixedChunker struct{}

func (FixedChunker) Chunk(doc domain.Document, text string, opts Options) ([]domain.Chunk, error) {
	if isBlank(text) {
		return nil, nil
	}

	maxChars := opts.MaxTokens * 4
	overlapChars := opts.OverlapTokens * 4
	if maxChars <= 0 {
		maxChars = 1000
	}
	if overlapChars < 0 || overlapChars >= maxChars {
		overlapChars = maxChars / 10
	}

	var chunks []domain.Chunk
	start := 0
	textLen := len(text)
	ordinal := 0

	for start < textLen {
		end := start + maxChars
		if end > textLen {
			end = textLen
		}

		if end < textLen {
			searchStart := end - 200
			if searchStart < start {
				searchStart = start
			}
			bestBreak := end
			for i := end - 1; i >= searchStart; i-- {
				char := text[i]
				if (char == '.' || char == '!' || char == '?') && i+1 < len(text) {
					next := text[i+1]
					if next == ' ' || next == '\n' || next == '\r' {
						bestBreak = i + 1
						break
					}
				}
				if i+1 < len(text) && char == '\n' && text[i+1] == '\n' {
					bestBreak = i + 2
					break
				}
			}
			if bestBreak > start {
				end = bestBreak
			}
		}

		raw := text[start:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			// Preserve the original offsets relative to the full document,
			// not the trimmed substring.
			leading := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
			trailing := len(raw) - len(strings.TrimRight(raw, " \t\r\n"))
			chunks = append(chunks, buildChunk(doc, ordinal, trimmed, start+leading, end-trailing))
			ordinal++
		}

		if end >= textLen {
			break
		}

		next := end - overlapChars
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}
