package ai

import (
	"context"
	"testing"

	"aipr/packages/config"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("print"), genai.Text("(2)")}},
		}},
	}
	text, ok := responseText(resp)
	assert.True(t, ok)
	assert.Equal(t, "print(2)", text)

	_, ok = responseText(&genai.GenerateContentResponse{})
	assert.False(t, ok)

	_, ok = responseText(nil)
	assert.False(t, ok)
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "gemini-2.5-flash", 200)
	assert.Error(t, err)
}

func TestNewCompleterOpenAI(t *testing.T) {
	completer, closeFn, err := NewCompleter(context.Background(), config.AIConfig{
		Provider:  config.ProviderOpenAI,
		APIKey:    "sk-test",
		Model:     "gpt-4o",
		MaxTokens: 200,
		BaseURL:   config.DefaultBaseURL,
	})
	require.NoError(t, err)
	assert.NoError(t, closeFn())
	assert.IsType(t, &OpenAIClient{}, completer)
}

func TestNewCompleterUnknownProvider(t *testing.T) {
	_, _, err := NewCompleter(context.Background(), config.AIConfig{Provider: "llama"})
	assert.ErrorIs(t, err, config.ErrConfig)
}
