// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaEmbeddingProvider calls a local or self-hosted Ollama instance.
// Ollama's embeddings endpoint is single-text, so EmbedBatch issues one
// request per text sequentially (matching the teacher's original adapter).
type OllamaEmbeddingProvider struct {
	baseURL string
	model   string
	client  *http.Client
	dim     int
}

// NewOllamaEmbeddingProvider constructs an adapter for the given model.
func NewOllamaEmbeddingProvider(baseURL, model string) *OllamaEmbeddingProvider {
	return &OllamaEmbeddingProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		dim:     768,
	}
}

func (e *OllamaEmbeddingProvider) Dimension() int { return e.dim }
func (e *OllamaEmbeddingProvider) Name() string   { return "ollama:" + e.model }

func (e *OllamaEmbeddingProvider) Probe(ctx context.Context) bool {
	_, err := e.embedOne(ctx, "ping")
	return err == nil
}

func (e *OllamaEmbeddingProvider) embedOne(ctx context.Context, text string) ([]float32, error) {
	payload := struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}{Model: e.model, Prompt: text}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embeddings", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, classifyHTTPError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	result := make([]float32, len(response.Embedding))
	for i, v := range response.Embedding {
		result[i] = float32(v)
	}
	return result, nil
}

// EmbedBatch generates embeddings for multiple texts, one request at a time.
func (e *OllamaEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		result[i] = vec
	}
	return result, nil
}
