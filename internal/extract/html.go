// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package extract

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// htmlExtractor strips script/style/noscript tags and returns the visible
// text content of an HTML document.
type htmlExtractor struct{}

func (htmlExtractor) Extract(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Text()
	if text == "" {
		return "", fmt.Errorf("no text extracted from HTML")
	}
	return text, nil
}
