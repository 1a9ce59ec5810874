// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package extract

import (
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	text, err := Extract("text/plain; charset=utf-8", []byte("hello world"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	_, err := Extract("application/octet-stream", []byte("data"))
	if err == nil {
		t.Fatal("expected error for unsupported content type")
	}
}

func TestExtractEmptyBody(t *testing.T) {
	_, err := Extract("text/plain", nil)
	if err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestExtractHTMLStripsScripts(t *testing.T) {
	html := `<html><body><script>evil()</script><p>Hello</p></body></html>`
	text, err := Extract("text/html", []byte(html))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if strings.Contains(text, "evil") {
		t.Errorf("expected script content to be stripped, got %q", text)
	}
	if !strings.Contains(text, "Hello") {
		t.Errorf("expected visible text preserved, got %q", text)
	}
}

func TestIsSupportedContentType(t *testing.T) {
	if !IsSupportedContentType("text/plain") {
		t.Error("expected text/plain to be supported")
	}
	if IsSupportedContentType("application/x-made-up") {
		t.Error("expected made-up type to be unsupported")
	}
}
