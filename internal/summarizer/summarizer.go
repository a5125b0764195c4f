// Package summarizer adapts an llm.Provider into the fovapi.SummarizerPort
// the Context Manager uses to compress stale episodic entries.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"fovtutor/internal/fov/fovapi"
	"fovtutor/internal/llm"
)

// maxInputChars bounds how much text is sent to the model for a single
// compress_episodic call; inputs larger than this are truncated head/tail
// before the request goes out, the way the teacher's memory.Manager bounds
// its rolling-summary prompt.
const maxInputChars = 4000

type adapter struct {
	provider llm.Provider
	model    string
}

// FromProvider wraps p into a SummarizerPort that asks model for a condensed
// version of whatever text the Manager passes to SummarizeTopicContent.
func FromProvider(p llm.Provider, model string) fovapi.SummarizerPort {
	return &adapter{provider: p, model: model}
}

func (a *adapter) SummarizeTopicContent(ctx context.Context, text string) (string, error) {
	content := truncateForSummary(text, maxInputChars)
	if content == "" {
		return "", nil
	}

	msgs := []llm.Message{
		{Role: "system", Content: "You are a concise summarizer condensing completed tutoring topics into one short paragraph a tutor can recall later."},
		{Role: "user", Content: content},
	}

	resp, err := a.provider.Chat(ctx, msgs, a.model)
	if err != nil {
		return "", fmt.Errorf("summarize topic content: %w", err)
	}

	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", fmt.Errorf("empty summary returned")
	}
	return summary, nil
}

// truncateForSummary keeps the head and tail of content around a
// "[TRUNCATED]" marker when it exceeds limit runes, preserving both the
// opening framing and the most recent material instead of losing either end.
func truncateForSummary(content string, limit int) string {
	trimmed := strings.TrimSpace(content)
	if limit <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) <= limit {
		return trimmed
	}
	markerRunes := []rune("\n[TRUNCATED]\n")
	if limit <= len(markerRunes)+4 {
		return string(runes[:limit]) + string(markerRunes)
	}
	available := limit - len(markerRunes)
	head := int(float64(available) * 0.6)
	if head < 1 {
		head = 1
	}
	tail := available - head
	if tail < 1 {
		tail = 1
		head = available - tail
	}
	if head+tail > len(runes) {
		return trimmed
	}
	return string(runes[:head]) + string(markerRunes) + string(runes[len(runes)-tail:])
}
