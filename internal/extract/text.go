// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package extract

import "fmt"

// textExtractor passes plain text and markdown bodies through unchanged.
type textExtractor struct{}

func (textExtractor) Extract(content []byte) (string, error) {
	text := string(content)
	if text == "" {
		return "", fmt.Errorf("no content in text body")
	}
	return text, nil
}
