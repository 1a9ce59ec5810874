// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package chunker

import (
	"strings"

	"github.com/northbound/ragcore/internal/domain"
)

// SemanticChunker groups text by paragraph and sentence boundaries,
// accumulating content until it would exceed MaxTokens, and only emitting a
// chunk once it has reached MinTokens (unless input runs out first).
type SemanticChunker struct{}

func (SemanticChunker) Chunk(doc domain.Document, text string, opts Options) ([]domain.Chunk, error) {
	if isBlank(text) {
		return nil, nil
	}
	minTokens := opts.MinTokens
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 250
	}
	if minTokens <= 0 || minTokens > maxTokens {
		minTokens = maxTokens / 4
	}

	paragraphs := splitParagraphsWithOffsets(text)

	var chunks []domain.Chunk
	ordinal := 0

	var buf strings.Builder
	bufStart := -1
	bufEnd := -1
	flush := func() {
		content := strings.TrimSpace(buf.String())
		if content != "" {
			chunks = append(chunks, buildChunk(doc, ordinal, content, bufStart, bufEnd))
			ordinal++
		}
		buf.Reset()
		bufStart, bufEnd = -1, -1
	}

	for _, p := range paragraphs {
		sentences := splitSentencesWithOffsets(p.text, p.start)

		for _, s := range sentences {
			candidateTokens := estimateTokens(buf.String() + " " + s.text)
			if buf.Len() > 0 && candidateTokens > maxTokens && estimateTokens(buf.String()) >= minTokens {
				flush()
			}
			if buf.Len() > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(s.text)
			if bufStart == -1 {
				bufStart = s.start
			}
			bufEnd = s.end

			// A single oversized sentence still gets flushed on its own
			// once it alone exceeds the cap.
			if estimateTokens(buf.String()) > maxTokens {
				flush()
			}
		}
	}
	flush()

	return chunks, nil
}

type span struct {
	text  string
	start int
	end   int
}

func splitParagraphsWithOffsets(text string) []span {
	var spans []span
	idx := 0
	for _, part := range strings.Split(text, "\n\n") {
		start := idx
		end := start + len(part)
		idx = end + 2 // account for the stripped "\n\n"
		if strings.TrimSpace(part) == "" {
			continue
		}
		spans = append(spans, span{text: part, start: start, end: end})
	}
	if len(spans) == 0 {
		spans = append(spans, span{text: text, start: 0, end: len(text)})
	}
	return spans
}

func splitSentencesWithOffsets(text string, baseOffset int) []span {
	var spans []span
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		isBoundary := (c == '.' || c == '!' || c == '?') && (i+1 >= len(text) || text[i+1] == ' ' || text[i+1] == '\n')
		if isBoundary {
			raw := text[start : i+1]
			trimmed := strings.TrimSpace(raw)
			if trimmed != "" {
				spans = append(spans, span{text: trimmed, start: baseOffset + start, end: baseOffset + i + 1})
			}
			start = i + 1
		}
	}
	if start < len(text) {
		raw := text[start:]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			spans = append(spans, span{text: trimmed, start: baseOffset + start, end: baseOffset + len(text)})
		}
	}
	return spans
}
