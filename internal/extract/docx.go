// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// docxExtractor extracts text from a DOCX document. Like the PDF extractor,
// the underlying library only reads from a path.
type docxExtractor struct{}

func (docxExtractor) Extract(content []byte) (string, error) {
	tmp, err := os.CreateTemp("", "ragcore-docx-*.docx")
	if err != nil {
		return "", fmt.Errorf("failed to stage docx: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to stage docx: %w", err)
	}
	tmp.Close()

	doc, err := docx.ReadDocxFile(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX file: %w", err)
	}
	defer doc.Close()

	text := strings.TrimSpace(doc.Editable().GetContent())
	if text == "" {
		return "", fmt.Errorf("no text extracted from DOCX")
	}
	return text, nil
}
