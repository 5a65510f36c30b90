package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// completionRequest is the body of a text-completion request
type completionRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

// completionResponse is the subset of the completion response we read
type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAIConfig holds the configuration for the completion endpoint
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	// Timeout of zero leaves requests unbounded.
	Timeout time.Duration
}

// OpenAIClient calls an OpenAI-compatible /completions endpoint.
type OpenAIClient struct {
	config OpenAIConfig
	client *http.Client
}

// NewOpenAIClient returns a client for the given configuration
func NewOpenAIClient(config OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Complete sends one completion request and returns the first choice's text,
// trimmed of surrounding whitespace.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	requestBody, err := json.Marshal(completionRequest{
		Model:     c.config.Model,
		Prompt:    prompt,
		MaxTokens: c.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + "/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	slog.Debug("Calling completion endpoint",
		"url", url,
		"model", c.config.Model,
		"promptLength", len(prompt))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &TransportError{Op: "call completion endpoint", Err: err}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: "read completion response", Err: err}
	}

	var result completionResponse
	decodeErr := json.Unmarshal(responseBody, &result)

	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(responseBody))
		if decodeErr == nil && result.Error != nil && result.Error.Message != "" {
			message = result.Error.Message
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if decodeErr != nil {
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to parse response: %v", decodeErr),
		}
	}

	if len(result.Choices) == 0 {
		return "", ErrNoChoices
	}

	slog.Debug("Completion received",
		"statusCode", resp.StatusCode,
		"contentLength", len(result.Choices[0].Text))

	return strings.TrimSpace(result.Choices[0].Text), nil
}
