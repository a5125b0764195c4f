// Package llm ports the teacher's multi-provider chat interface, trimmed to
// what the Summarizer port needs: a single non-streaming Chat call. Tool
// calling, image parts, and thought signatures belong to the teacher's
// agent loop, not to a summarization call, so they're dropped rather than
// carried along unused.
package llm

import "context"

// Message is a role-tagged chat turn sent to or received from a Provider.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// Provider is the capability a Summarizer adapter wraps: turn a list of
// messages into one reply from a given model.
type Provider interface {
	Chat(ctx context.Context, msgs []Message, model string) (Message, error)
}
