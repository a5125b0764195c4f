package fovapi

import (
	"context"
	"errors"
)

// Sentinel errors for the error kinds named in spec.md §7. None of these are
// fatal to a session: callers degrade gracefully per the policy documented
// next to each one, the way internal/rag/service/errors.go's sentinels are
// consumed by callers that keep going rather than abort.
var (
	// ErrMissingCollaborator means an operation needs an Expansion Handler
	// or Summarizer that was never configured. Policy: return an empty
	// result and log a warning; never surface to the LLM.
	ErrMissingCollaborator = errors.New("fov: collaborator not configured")

	// ErrInvalidInput means an empty query, unknown scope, or an
	// out-of-range configuration value was supplied. Policy: reject and
	// return an empty result.
	ErrInvalidInput = errors.New("fov: invalid input")

	// ErrCancelled wraps cooperative cancellation of a suspending
	// operation (expand_context, compress_episodic).
	ErrCancelled = errors.New("fov: operation cancelled")
)

// TopicRef is an opaque topic identity the host's Curriculum port
// understands. The core never inspects its contents.
type TopicRef struct {
	ID string
}

// TopicMetadata is the Curriculum port's answer to "what is this topic".
type TopicMetadata struct {
	Title      string
	Outline    string
	Objectives []string
}

// CurriculumPort is the abstract capability the Expansion Handler and
// Session Coordinator use to reach curriculum storage/search. The core only
// ever holds a relation to an implementation, never ownership (spec.md §9):
// a nil or failing port must degrade to "no expansion possible", never
// crash the caller.
type CurriculumPort interface {
	// TopicMetadata returns title/outline/objectives for topic.
	TopicMetadata(ctx context.Context, topic TopicRef) (TopicMetadata, error)

	// Glossary returns glossary terms for topic, optionally filtered by a
	// substring query. An empty query returns all known terms.
	Glossary(ctx context.Context, topic TopicRef, query string) ([]GlossaryTerm, error)

	// Misconceptions returns misconception triggers registered for topic.
	Misconceptions(ctx context.Context, topic TopicRef) ([]MisconceptionTrigger, error)

	// Outline returns the curriculum's compressed outline, one line per
	// topic, in curriculum order.
	Outline(ctx context.Context) (string, error)

	// Position returns topic's place within the wider curriculum.
	Position(ctx context.Context, topic TopicRef) (Position, error)

	// PreviousTopic and NextTopic return the topic adjacent to topic in
	// curriculum order. ok is false when no such neighbor exists.
	PreviousTopic(ctx context.Context, topic TopicRef) (ref TopicRef, ok bool, err error)
	NextTopic(ctx context.Context, topic TopicRef) (ref TopicRef, ok bool, err error)

	// TopicAt returns the nth topic in curriculum order (0-indexed), for
	// fullCurriculum scope probing. ok is false past the end.
	TopicAt(ctx context.Context, index int) (ref TopicRef, ok bool, err error)

	// GenerateContextForQuery returns a bounded text slice relevant to
	// query within topic, capped at maxTokens estimated tokens, plus the
	// port's own relevance score in [0,1] for that slice. The port itself
	// enforces the cap; the Expansion Handler does not re-trim. relevance
	// is only consulted by fullCurriculum-scope probes, which rank
	// candidates the port cannot otherwise distinguish; currentTopic and
	// currentUnit scopes use the fixed relevances spec.md §4.5 assigns.
	GenerateContextForQuery(ctx context.Context, query string, topic TopicRef, maxTokens int) (content string, relevance float64, err error)
}

// SummarizerPort compresses text under the Manager's control, e.g. to
// condense stale episodic entries. A nil SummarizerPort is a valid,
// supported configuration: compress_episodic becomes a no-op.
type SummarizerPort interface {
	// SummarizeTopicContent returns a condensed form of text, no larger in
	// estimated tokens than the input.
	SummarizeTopicContent(ctx context.Context, text string) (string, error)
}
