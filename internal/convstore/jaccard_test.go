// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package convstore

import "testing"

func TestJaccardIdentical(t *testing.T) {
	a := wordSet("what is the pricing tier")
	b := wordSet("what is the pricing tier")
	if sim := jaccard(a, b); sim != 1 {
		t.Errorf("expected similarity 1 for identical sets, got %f", sim)
	}
}

func TestJaccardPartialOverlap(t *testing.T) {
	a := wordSet("apples and oranges")
	b := wordSet("trucks and planes")
	sim := jaccard(a, b)
	if sim <= 0 || sim >= 1 {
		t.Errorf("expected partial overlap from shared word 'and', got %f", sim)
	}
}

func TestJaccardEmptyBoth(t *testing.T) {
	if sim := jaccard(wordSet(""), wordSet("")); sim != 1 {
		t.Errorf("expected similarity 1 for two empty sets, got %f", sim)
	}
}

func TestJaccardOneEmpty(t *testing.T) {
	if sim := jaccard(wordSet("hello"), wordSet("")); sim != 0 {
		t.Errorf("expected similarity 0 when one set is empty, got %f", sim)
	}
}
