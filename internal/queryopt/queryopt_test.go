// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queryopt

import "testing"

func TestOptimizeCollapsesWhitespaceAndPunctuation(t *testing.T) {
	opts := Options{Enabled: true, MinLength: 3}
	got := Optimize("what   is  the pricing, tier?!", opts)
	want := "what is the pricing tier"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestOptimizeExpandsAcronyms(t *testing.T) {
	opts := Options{Enabled: true, MinLength: 3, ExpandAcronyms: true}
	got := Optimize("what is RAG", opts)
	if got != "what is retrieval augmented generation" {
		t.Errorf("unexpected expansion: %q", got)
	}
}

func TestOptimizeRemovesStopwords(t *testing.T) {
	opts := Options{Enabled: true, MinLength: 1, RemoveStopwords: true}
	got := Optimize("what is the pricing for the tier", opts)
	if got != "what pricing tier" {
		t.Errorf("unexpected stopword removal: %q", got)
	}
}

func TestOptimizeFallsBackWhenTooShort(t *testing.T) {
	opts := Options{Enabled: true, MinLength: 50, RemoveStopwords: true}
	original := "what is the pricing"
	got := Optimize(original, opts)
	if got != original {
		t.Errorf("expected fallback to original query, got %q", got)
	}
}

func TestOptimizeDisabled(t *testing.T) {
	opts := Options{Enabled: false}
	got := Optimize("  what is this?  ", opts)
	if got != "what is this?" {
		t.Errorf("expected only trim when disabled, got %q", got)
	}
}

func TestAnalyzeComplexityBuckets(t *testing.T) {
	cases := []struct {
		query string
		want  Complexity
	}{
		{"hello", ComplexitySimple},
		{"what is the capital of France today", ComplexityModerate},
		{"explain in detail how the retrieval pipeline assembles context from multiple documents", ComplexityComplex},
	}
	for _, c := range cases {
		got := Analyze(c.query)
		if got.Complexity != c.want {
			t.Errorf("query %q: got %s want %s", c.query, got.Complexity, c.want)
		}
	}
}
