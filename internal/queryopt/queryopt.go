// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queryopt

import (
	"regexp"
	"strings"
)

// Complexity buckets a query by its estimated processing cost. Pure
// heuristic, not a cost model.
type Complexity string

const (
	ComplexitySimple     Complexity = "SIMPLE"
	ComplexityModerate   Complexity = "MODERATE"
	ComplexityComplex    Complexity = "COMPLEX"
	ComplexityVeryComplex Complexity = "VERY_COMPLEX"
)

// Analysis is the result of classifying a query's complexity.
type Analysis struct {
	WordCount  int
	Complexity Complexity
}

// Options configures the optimizer. All fields are independently toggleable
// so a tenant with stricter normalization can be configured differently.
type Options struct {
	Enabled         bool
	MinLength       int
	ExpandAcronyms  bool
	RemoveStopwords bool
}

var acronyms = map[string]string{
	"rag":  "retrieval augmented generation",
	"llm":  "large language model",
	"api":  "application programming interface",
	"faq":  "frequently asked questions",
	"kpi":  "key performance indicator",
	"sla":  "service level agreement",
	"roi":  "return on investment",
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "of": {}, "to": {},
	"and": {}, "or": {}, "in": {}, "on": {}, "for": {}, "with": {}, "at": {},
}

var punctuation = regexp.MustCompile(`[^\w\s]`)
var whitespace = regexp.MustCompile(`\s+`)

// Optimize normalizes a query for retrieval: trims and collapses
// whitespace, strips punctuation, optionally expands known acronyms, and
// optionally removes stopwords. If the optimized result would fall below
// MinLength characters, the original query is returned unchanged rather
// than risk losing retrieval signal.
func Optimize(query string, opts Options) string {
	if !opts.Enabled {
		return strings.TrimSpace(query)
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return trimmed
	}

	normalized := whitespace.ReplaceAllString(trimmed, " ")
	stripped := punctuation.ReplaceAllString(normalized, "")
	stripped = whitespace.ReplaceAllString(stripped, " ")
	stripped = strings.TrimSpace(stripped)

	words := strings.Fields(stripped)
	out := make([]string, 0, len(words))
	for _, w := range words {
		lw := strings.ToLower(w)
		if opts.RemoveStopwords {
			if _, isStop := stopwords[lw]; isStop {
				continue
			}
		}
		if opts.ExpandAcronyms {
			if expansion, ok := acronyms[lw]; ok {
				out = append(out, expansion)
				continue
			}
		}
		out = append(out, w)
	}

	result := strings.TrimSpace(strings.Join(out, " "))
	if opts.MinLength > 0 && len(result) < opts.MinLength {
		return trimmed
	}
	if result == "" {
		return trimmed
	}
	return result
}

// Analyze classifies query complexity from its word count. This is a pure
// diagnostic function; no retrieval path in this module calls it.
func Analyze(query string) Analysis {
	words := strings.Fields(query)
	n := len(words)

	var c Complexity
	switch {
	case n <= 4:
		c = ComplexitySimple
	case n <= 10:
		c = ComplexityModerate
	case n <= 20:
		c = ComplexityComplex
	default:
		c = ComplexityVeryComplex
	}

	return Analysis{WordCount: n, Complexity: c}
}
