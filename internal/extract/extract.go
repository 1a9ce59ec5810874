// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package extract

import (
	"fmt"
	"strings"

	"github.com/northbound/ragcore/internal/ragerrors"
)

// Extractor pulls plain text out of a document's raw bytes. Implementations
// see only the bytes; the registry below picks one by the declared content
// type rather than a file extension, since the storage collaborator hands
// back bytes, not a path.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// contentTypeKey normalizes a MIME content type (stripping parameters like
// "; charset=utf-8") for dispatch.
func contentTypeKey(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

var registry = map[string]Extractor{
	"application/pdf": pdfExtractor{},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": docxExtractor{},
	"text/html":        htmlExtractor{},
	"application/xhtml+xml": htmlExtractor{},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": excelExtractor{},
	"application/vnd.ms-excel": excelExtractor{},
	"message/rfc822":  emailExtractor{},
	"text/plain":       textExtractor{},
	"text/markdown":    textExtractor{},
}

// Extract dispatches on the document's declared content type and returns
// its extracted plain text. An empty body fails with ErrEmptyDocument; any
// extractor error, including an extractor finding no text, is wrapped as
// ErrExtractionFailed.
func Extract(contentType string, content []byte) (string, error) {
	key := contentTypeKey(contentType)
	extractor, ok := registry[key]
	if !ok {
		return "", fmt.Errorf("%w: unsupported content type %q", ragerrors.ErrExtractionFailed, contentType)
	}
	if len(content) == 0 {
		return "", fmt.Errorf("%w: empty document body", ragerrors.ErrEmptyDocument)
	}

	text, err := extractor.Extract(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ragerrors.ErrExtractionFailed, err)
	}
	return text, nil
}

// IsSupportedContentType reports whether a content type has a registered
// extractor.
func IsSupportedContentType(contentType string) bool {
	_, ok := registry[contentTypeKey(contentType)]
	return ok
}
