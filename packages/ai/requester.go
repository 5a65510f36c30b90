package ai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// ChunkFailure records a chunk whose request failed and fell back to the
// original text.
type ChunkFailure struct {
	Index int
	Err   error
}

// ChangeResult is the proposed content for one file. Content is always
// usable: every failed chunk contributes its original text.
type ChangeResult struct {
	Content  string
	Chunks   int
	Failures []ChunkFailure
}

// Failed reports whether no chunk produced a completion.
func (r ChangeResult) Failed() bool {
	return r.Chunks > 0 && len(r.Failures) == r.Chunks
}

// ChangeRequester asks a Completer to rewrite files for one issue.
type ChangeRequester struct {
	completer Completer
	issueBody string
	chunkSize int
}

// NewChangeRequester returns a requester. A chunkSize of zero sends whole
// files in a single request.
func NewChangeRequester(completer Completer, issueBody string, chunkSize int) *ChangeRequester {
	return &ChangeRequester{
		completer: completer,
		issueBody: issueBody,
		chunkSize: chunkSize,
	}
}

// RequestChanges returns the proposed replacement for content. Each request
// that fails leaves its part of the content unchanged.
func (r *ChangeRequester) RequestChanges(ctx context.Context, filename, content string) ChangeResult {
	chunks := []string{content}
	if r.chunkSize > 0 {
		chunks = SplitIntoChunks(content, r.chunkSize)
	}

	result := ChangeResult{Chunks: len(chunks)}
	var sb strings.Builder
	for i, chunk := range chunks {
		text, err := r.completer.Complete(ctx, BuildChangePrompt(filename, chunk, r.issueBody))
		if err != nil {
			if errors.Is(err, ErrNoChoices) {
				slog.Info("No completion returned, keeping original", "file", filename, "chunk", i)
			} else {
				slog.Error("Error querying completion endpoint", "file", filename, "chunk", i, "error", err)
			}
			result.Failures = append(result.Failures, ChunkFailure{Index: i, Err: err})
			text = chunk
		}
		sb.WriteString(text)
	}
	result.Content = sb.String()
	return result
}

// SplitIntoChunks splits text into consecutive pieces of at most size bytes.
// A split never lands inside a UTF-8 sequence, so a piece may be a few bytes
// shorter; a single rune wider than size becomes its own piece.
func SplitIntoChunks(text string, size int) []string {
	if size <= 0 {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= size {
			chunks = append(chunks, text)
			break
		}

		n := size
		for n > 0 && !utf8.RuneStart(text[n]) {
			n--
		}
		if n == 0 {
			n = size
			for n < len(text) && !utf8.RuneStart(text[n]) {
				n++
			}
		}

		chunks = append(chunks, text[:n])
		text = text[n:]
	}
	return chunks
}
