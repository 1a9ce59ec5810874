// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/northbound/ragcore/internal/ragerrors"
)

// OpenAIEmbeddingProvider calls OpenAI's embeddings API.
type OpenAIEmbeddingProvider struct {
	apiKey string
	model  string
	client *http.Client
	dim    int
}

// NewOpenAIEmbeddingProvider constructs an adapter for the given model,
// inferring the output dimension from well-known OpenAI model names.
func NewOpenAIEmbeddingProvider(apiKey, model string) *OpenAIEmbeddingProvider {
	dim := 1536
	switch model {
	case "text-embedding-3-large":
		dim = 3072
	case "text-embedding-ada-002", "text-embedding-3-small":
		dim = 1536
	}

	return &OpenAIEmbeddingProvider{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
		dim:    dim,
	}
}

func (e *OpenAIEmbeddingProvider) Dimension() int { return e.dim }
func (e *OpenAIEmbeddingProvider) Name() string   { return "openai:" + e.model }

// Probe issues a single-text embedding call as a minimal health check.
func (e *OpenAIEmbeddingProvider) Probe(ctx context.Context) bool {
	_, err := e.EmbedBatch(ctx, []string{"ping"})
	return err == nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *OpenAIEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	type requestPayload struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}

	jsonData, err := json.Marshal(requestPayload{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, classifyHTTPError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ragerrors.ErrProviderRateLimited
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: openai status %d", ragerrors.ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai embeddings API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Data))
	}

	result := make([][]float32, len(response.Data))
	for i, data := range response.Data {
		result[i] = make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			result[i][j] = float32(v)
		}
	}
	return result, nil
}

// classifyHTTPError maps a transport-level failure to the error taxonomy:
// a deadline or connectivity failure is a ProviderTimeout/ProviderUnavailable
// rather than an opaque error, so callers can decide whether to fall back.
func classifyHTTPError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ragerrors.ErrProviderTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ragerrors.ErrProviderTimeout, err)
	}
	return fmt.Errorf("%w: %v", ragerrors.ErrProviderUnavailable, err)
}
