// Package openai implements pkg/generative's Completer client for OpenAI's
// chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/mentor/pkg/generative"
	"github.com/papercomputeco/mentor/pkg/teaching"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "gpt-4o-mini"

	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com"
)

// Completer wraps OpenAI's chat completions API.
type Completer struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// CompleterConfig holds configuration for the OpenAI completer.
type CompleterConfig struct {
	// APIKey is the OpenAI API key. Required.
	APIKey string

	// BaseURL overrides the OpenAI API URL for compatible endpoints.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the chat model to use.
	// Defaults to DefaultModel if empty.
	Model string
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewCompleter creates a new completer using OpenAI's chat completions API.
func NewCompleter(cfg CompleterConfig) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Completer{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Complete generates an answer to the query grounded in the given teachings.
func (c *Completer) Complete(ctx context.Context, query string, teachings []teaching.Teaching) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: generative.BuildPrompt(query, teachings)},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %v", generative.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", generative.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %v", generative.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: openai returned status %d: %s", generative.ErrGeneration, resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", generative.ErrGeneration, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: openai error: %s", generative.ErrGeneration, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", generative.ErrGeneration)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Close releases resources held by the completer.
func (c *Completer) Close() error {
	return nil
}

var _ generative.Completer = (*Completer)(nil)
