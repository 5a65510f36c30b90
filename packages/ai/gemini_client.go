package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient generates completions with the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// NewGeminiClient creates a client bound to one model.
func NewGeminiClient(ctx context.Context, apiKey, model string, maxTokens int) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	generative := client.GenerativeModel(model)
	generative.SetMaxOutputTokens(int32(maxTokens))

	return &GeminiClient{
		client: client,
		model:  generative,
		name:   model,
	}, nil
}

func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	slog.Debug("Sending request to Gemini API", "model", g.name, "promptLength", len(prompt))

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &APIError{Message: err.Error()}
	}

	text, ok := responseText(resp)
	if !ok {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(text), nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", false
	}

	var sb strings.Builder
	found := false
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
			found = true
		}
	}
	return sb.String(), found
}
