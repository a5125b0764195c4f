// Package expansion implements the scope-directed retrieval that widens the
// working buffer mid-session when the confidence monitor recommends it
// (spec.md §4.5).
package expansion

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	fovcontext "fovtutor/internal/fov/context"
	"fovtutor/internal/fov/fovapi"
	"fovtutor/internal/observability"
	"fovtutor/internal/tokenest"
)

const (
	defaultMaxTokens    = 2000
	fullCurriculumProbe = 10
	fullCurriculumTake  = 5
)

// Handler performs scope-directed retrieval via an injected Curriculum port
// and writes results into a Manager's working buffer.
type Handler struct {
	curriculum   fovapi.CurriculumPort
	manager      *fovcontext.Manager
	maxTokens    int
	currentTopic fovapi.TopicRef
}

// New creates a Handler. maxTokens is the per-request token cap (default
// 2000 when <= 0).
func New(curriculum fovapi.CurriculumPort, manager *fovcontext.Manager, maxTokens int) *Handler {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Handler{curriculum: curriculum, manager: manager, maxTokens: maxTokens}
}

// SetCurrentTopic tells the handler which topic anchors currentTopic/
// currentUnit scope probes.
func (h *Handler) SetCurrentTopic(topic fovapi.TopicRef) {
	h.currentTopic = topic
}

// Execute performs the scope-directed retrieval and merges results into the
// Manager's working buffer through ExpandWorkingBuffer.
func (h *Handler) Execute(ctx context.Context, req fovapi.Request) (fovapi.Result, error) {
	if req.Query == "" {
		return fovapi.Result{}, fovapi.ErrInvalidInput
	}
	if h.curriculum == nil {
		return fovapi.Result{}, fovapi.ErrMissingCollaborator
	}

	var items []fovapi.RetrievedContent
	var err error

	switch req.Scope {
	case fovapi.ScopeCurrentTopic:
		items, err = h.probeCurrentTopic(ctx, req.Query)
	case fovapi.ScopeCurrentUnit, fovapi.ScopeRelatedTopics:
		// relatedTopics falls through to currentUnit: dependency-graph
		// traversal is a pending feature (spec.md §9 Open Questions).
		items, err = h.probeCurrentUnit(ctx, req.Query)
	case fovapi.ScopeFullCurriculum:
		items, err = h.probeFullCurriculum(ctx, req.Query)
	default:
		return fovapi.Result{}, fovapi.ErrInvalidInput
	}
	if err != nil {
		return fovapi.Result{}, err
	}

	result := fovapi.Result{Items: items}
	for _, it := range items {
		result.TotalTokens += it.EstimatedTokens
	}

	if h.manager != nil && len(items) > 0 {
		h.manager.ExpandWorkingBuffer(items)
	}

	return result, nil
}

func (h *Handler) probeCurrentTopic(ctx context.Context, query string) ([]fovapi.RetrievedContent, error) {
	item, ok := h.fetch(ctx, query, h.currentTopic, h.maxTokens, "current topic", 1.0)
	if !ok {
		return nil, nil
	}
	return []fovapi.RetrievedContent{item}, nil
}

// probeCurrentUnit fetches the current topic at the full cap plus its
// previous/next neighbors at cap/3, in parallel (spec.md §4.5).
func (h *Handler) probeCurrentUnit(ctx context.Context, query string) ([]fovapi.RetrievedContent, error) {
	neighborCap := h.maxTokens / 3

	var current, prev, next *fovapi.RetrievedContent
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if item, ok := h.fetch(gctx, query, h.currentTopic, h.maxTokens, "current topic", 1.0); ok {
			current = &item
		}
		return nil
	})
	g.Go(func() error {
		ref, ok, err := h.curriculum.PreviousTopic(gctx, h.currentTopic)
		if err != nil {
			// CurriculumLookupFailure: this slice is treated as empty.
			observability.LoggerWithTrace(gctx).Warn().Err(err).Str("topic", h.currentTopic.ID).Msg("expand_context_previous_topic_lookup_failed")
			return nil
		}
		if !ok {
			return nil
		}
		if item, ok := h.fetch(gctx, query, ref, neighborCap, "previous topic", 0.8); ok {
			prev = &item
		}
		return nil
	})
	g.Go(func() error {
		ref, ok, err := h.curriculum.NextTopic(gctx, h.currentTopic)
		if err != nil {
			observability.LoggerWithTrace(gctx).Warn().Err(err).Str("topic", h.currentTopic.ID).Msg("expand_context_next_topic_lookup_failed")
			return nil
		}
		if !ok {
			return nil
		}
		if item, ok := h.fetch(gctx, query, ref, neighborCap, "next topic", 0.7); ok {
			next = &item
		}
		return nil
	})
	// Errors from each probe are swallowed per-slice (CurriculumLookupFailure
	// policy, spec.md §7): every probe returns nil, so errgroup here only
	// waits for the probes to finish.
	_ = g.Wait()

	var items []fovapi.RetrievedContent
	for _, it := range []*fovapi.RetrievedContent{current, prev, next} {
		if it != nil {
			items = append(items, *it)
		}
	}
	return items, nil
}

// probeFullCurriculum probes up to the first 10 topics in parallel at
// cap/5 each, sorts by relevance descending, and returns the top 5.
func (h *Handler) probeFullCurriculum(ctx context.Context, query string) ([]fovapi.RetrievedContent, error) {
	perTopicCap := h.maxTokens / 5

	results := make([]*fovapi.RetrievedContent, fullCurriculumProbe)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < fullCurriculumProbe; i++ {
		idx := i
		g.Go(func() error {
			ref, ok, err := h.curriculum.TopicAt(gctx, idx)
			if err != nil || !ok {
				return nil
			}
			content, relevance, err := h.curriculum.GenerateContextForQuery(gctx, query, ref, perTopicCap)
			if err != nil || content == "" {
				return nil
			}
			results[idx] = &fovapi.RetrievedContent{
				SourceTitle:     fmt.Sprintf("topic %d", idx),
				Content:         content,
				Relevance:       relevance,
				EstimatedTokens: tokenest.Estimate(content),
			}
			return nil
		})
	}
	_ = g.Wait()

	var items []fovapi.RetrievedContent
	for _, r := range results {
		if r != nil {
			items = append(items, *r)
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Relevance > items[j].Relevance })
	if len(items) > fullCurriculumTake {
		items = items[:fullCurriculumTake]
	}
	return items, nil
}

// fetch calls GenerateContextForQuery and wraps a non-empty result into a
// RetrievedContent. Items missing content are omitted (spec.md §4.5). The
// port's own relevance score is discarded here in favor of relevance: the
// currentTopic/currentUnit scopes use the fixed relevances spec.md §4.5
// assigns rather than a port-supplied score. probeFullCurriculum, which has
// no fixed relevance to assign, calls GenerateContextForQuery directly
// instead of going through fetch so it can keep the port's own score.
func (h *Handler) fetch(ctx context.Context, query string, topic fovapi.TopicRef, maxTokens int, sourceLabel string, relevance float64) (fovapi.RetrievedContent, bool) {
	content, _, err := h.curriculum.GenerateContextForQuery(ctx, query, topic, maxTokens)
	if err != nil {
		// CurriculumLookupFailure: this item is treated as empty.
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("topic", topic.ID).Str("source", sourceLabel).Msg("expand_context_generate_context_failed")
		return fovapi.RetrievedContent{}, false
	}
	if content == "" {
		return fovapi.RetrievedContent{}, false
	}
	return fovapi.RetrievedContent{
		SourceTitle:     sourceLabel,
		Content:         content,
		Relevance:       relevance,
		EstimatedTokens: tokenest.Estimate(content),
	}, true
}
