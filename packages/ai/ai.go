package ai

import (
	"context"
	"errors"
	"fmt"

	"aipr/packages/config"
)

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrNoChoices is returned when the endpoint answered without any generated
// text. Callers treat it as "no change".
var ErrNoChoices = errors.New("completion returned no choices")

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-success answer from the completion endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("completion API error: %s", e.Message)
	}
	return fmt.Sprintf("completion API returned status %d: %s", e.StatusCode, e.Message)
}

// NewCompleter builds the completion backend selected by cfg.Provider. The
// returned close function releases backend resources.
func NewCompleter(ctx context.Context, cfg config.AIConfig) (Completer, func() error, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.RequestTimeout,
		}), func() error { return nil }, nil
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.MaxTokens)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown provider %q", config.ErrConfig, cfg.Provider)
	}
}

// BuildChangePrompt embeds the file name, its content and the issue body into
// the instruction sent to the model.
func BuildChangePrompt(filename, content, issueBody string) string {
	return fmt.Sprintf("Given the filename:'%s' and the following content:'%s'\n modify the content to provide a solution for this issue:\n'%s'\n and output the result.",
		filename,
		content,
		issueBody,
	)
}
