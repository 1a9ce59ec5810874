// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package assembler

import (
	"fmt"
	"strings"

	"github.com/northbound/ragcore/internal/domain"
	"github.com/northbound/ragcore/internal/vectorindex"
)

// Options bounds a context assembly run.
type Options struct {
	MaxTokens          int
	RelevanceThreshold float32
	IncludeMetadata    bool
}

// Stats summarizes an assembly run for response metrics.
type Stats struct {
	CandidatesConsidered int
	ChunksUsed           int
	TokensUsed           int
	AvgRelevance         float32
}

// Result is the assembled context plus its source attribution.
type Result struct {
	Context string
	Sources []domain.SourceChunk
	Stats   Stats
}

// estimateTokens approximates token count as chars/4.
func estimateTokens(s string) int {
	n := len(s) / 4
	if n == 0 && len(s) > 0 {
		n = 1
	}
	return n
}

// Assemble is a pure function: it filters hits below the relevance floor,
// deduplicates identical sentences across blocks (keeping the first
// occurrence), and accumulates blocks into the token budget in ranked
// order. At least one block is always included even if it alone exceeds
// the budget, truncated at a word boundary with an ellipsis, so a query
// never returns an empty context when a relevant hit exists.
func Assemble(hits []vectorindex.ScoredChunk, chunksByID map[domain.ChunkID]domain.Chunk, opts Options) Result {
	var candidates []vectorindex.ScoredChunk
	for _, h := range hits {
		if h.Score >= opts.RelevanceThreshold {
			candidates = append(candidates, h)
		}
	}

	seenSentences := make(map[string]bool)
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	var blocks []string
	var sources []domain.SourceChunk
	usedTokens := 0
	var relevanceSum float32

	for i, hit := range candidates {
		chunk, ok := chunksByID[hit.ChunkID]
		if !ok {
			continue
		}

		content := dedupSentences(chunk.Content, seenSentences)
		if strings.TrimSpace(content) == "" {
			continue
		}

		block := content
		if opts.IncludeMetadata {
			block = formatWithMetadata(chunk, content)
		}

		blockTokens := estimateTokens(block)

		if usedTokens+blockTokens > maxTokens {
			if len(blocks) == 0 {
				// Always include at least one block, truncated to fit.
				block = truncateToTokens(block, maxTokens)
				blockTokens = estimateTokens(block)
				blocks = append(blocks, block)
				sources = append(sources, sourceFromChunk(chunk, hit))
				usedTokens += blockTokens
				relevanceSum += hit.Score
			}
			break
		}

		blocks = append(blocks, block)
		sources = append(sources, sourceFromChunk(chunk, hit))
		usedTokens += blockTokens
		relevanceSum += hit.Score
		_ = i
	}

	var avgRelevance float32
	if len(sources) > 0 {
		avgRelevance = relevanceSum / float32(len(sources))
	}

	return Result{
		Context: strings.Join(blocks, "\n\n---\n\n"),
		Sources: sources,
		Stats: Stats{
			CandidatesConsidered: len(candidates),
			ChunksUsed:           len(blocks),
			TokensUsed:           usedTokens,
			AvgRelevance:         avgRelevance,
		},
	}
}

func sourceFromChunk(chunk domain.Chunk, hit vectorindex.ScoredChunk) domain.SourceChunk {
	title := chunk.Metadata.Title
	excerpt := chunk.Content
	if len(excerpt) > 240 {
		excerpt = excerpt[:240] + "..."
	}
	return domain.SourceChunk{
		DocumentID: chunk.DocumentID,
		ChunkID:    chunk.ChunkID,
		Title:      title,
		Excerpt:    excerpt,
		Score:      hit.Score,
	}
}

func formatWithMetadata(chunk domain.Chunk, content string) string {
	header := chunk.Metadata.Title
	if header == "" {
		header = string(chunk.DocumentID)
	}
	return fmt.Sprintf("[Source: %s]\n%s", header, content)
}

// dedupSentences drops sentences already seen earlier in this block or in an
// earlier block, compared case-insensitively after trimming whitespace, so
// repeated boilerplate across chunks does not eat into the token budget
// twice.
func dedupSentences(content string, seen map[string]bool) string {
	sentences := splitSentences(content)
	var kept []string
	for _, s := range sentences {
		norm := strings.ToLower(strings.TrimSpace(s))
		if norm == "" {
			continue
		}
		if seen[norm] {
			continue
		}
		seen[norm] = true
		kept = append(kept, s)
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && (i+1 >= len(text) || text[i+1] == ' ' || text[i+1] == '\n') {
			sentences = append(sentences, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// truncateToTokens cuts a string to fit within maxTokens, breaking at the
// nearest preceding word boundary and appending an ellipsis.
func truncateToTokens(s string, maxTokens int) string {
	maxChars := maxTokens * 4
	if len(s) <= maxChars {
		return s
	}
	cut := s[:maxChars]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}
