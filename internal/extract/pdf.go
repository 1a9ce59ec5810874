// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// pdfExtractor extracts text from a PDF using go-fitz (MuPDF). The library
// only opens from a path, so the bytes are staged to a temp file for the
// duration of the call.
type pdfExtractor struct{}

func (pdfExtractor) Extract(content []byte) (string, error) {
	tmp, err := os.CreateTemp("", "ragcore-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to stage pdf: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to stage pdf: %w", err)
	}
	tmp.Close()

	doc, err := fitz.New(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var textBuilder strings.Builder
	numPages := doc.NumPage()
	for i := 0; i < numPages; i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			continue
		}
		textBuilder.WriteString(pageText)
		if i < numPages-1 {
			textBuilder.WriteString("\n\n")
		}
	}

	text := strings.TrimSpace(textBuilder.String())
	if text == "" {
		return "", fmt.Errorf("no text extracted from PDF")
	}
	return text, nil
}
