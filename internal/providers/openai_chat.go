// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/northbound/ragcore/internal/ragerrors"
)

// OpenAIChatProvider calls OpenAI's chat completions API, non-streaming and
// streaming.
type OpenAIChatProvider struct {
	apiKey string
	model  string
	client *http.Client
}

// NewOpenAIChatProvider constructs a chat adapter for the given model.
func NewOpenAIChatProvider(apiKey, model string) *OpenAIChatProvider {
	return &OpenAIChatProvider{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *OpenAIChatProvider) Name() string { return "openai:" + c.model }

func (c *OpenAIChatProvider) Probe(ctx context.Context) bool {
	_, err := c.Chat(ctx, "You are a health check.", "reply with OK", ChatOptions{MaxTokens: 4})
	return err == nil
}

func (c *OpenAIChatProvider) buildPayload(systemPrompt, userPrompt string, opts ChatOptions, stream bool) ([]byte, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	payload := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"max_tokens":  maxTokens,
		"temperature": opts.Temperature,
		"stream":      stream,
	}
	return json.Marshal(payload)
}

// Chat issues a single non-streaming completion call.
func (c *OpenAIChatProvider) Chat(ctx context.Context, systemPrompt, userPrompt string, opts ChatOptions) (string, error) {
	jsonData, err := c.buildPayload(systemPrompt, userPrompt, opts, false)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyHTTPError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ragerrors.ErrProviderRateLimited
	}
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: openai status %d", ragerrors.ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai chat API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response from openai")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// ChatStream issues a streaming completion call and returns a channel of
// fragments in emission order. Closing ctx stops the underlying HTTP
// response body read and the channel is closed without further sends.
func (c *OpenAIChatProvider) ChatStream(ctx context.Context, systemPrompt, userPrompt string, opts ChatOptions) (<-chan StreamChunk, error) {
	jsonData, err := c.buildPayload(systemPrompt, userPrompt, opts, true)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyHTTPError(err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai chat stream error (status %d): %s", resp.StatusCode, string(body))
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				select {
				case out <- StreamChunk{Done: true}:
				case <-ctx.Done():
				}
				return
			}

			var event struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue
			}
			if len(event.Choices) == 0 {
				continue
			}
			text := event.Choices[0].Delta.Content
			if text == "" {
				continue
			}
			select {
			case out <- StreamChunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- StreamChunk{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}
