package expansion

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fovcontext "fovtutor/internal/fov/context"
	"fovtutor/internal/fov/fovapi"
)

type fakeCurriculum struct {
	topics      map[string]string // topic ID -> content
	relevances  map[string]float64
	order       []string
	failPrev    bool
	failContent map[string]bool
}

func (f *fakeCurriculum) TopicMetadata(context.Context, fovapi.TopicRef) (fovapi.TopicMetadata, error) {
	return fovapi.TopicMetadata{}, nil
}
func (f *fakeCurriculum) Glossary(context.Context, fovapi.TopicRef, string) ([]fovapi.GlossaryTerm, error) {
	return nil, nil
}
func (f *fakeCurriculum) Misconceptions(context.Context, fovapi.TopicRef) ([]fovapi.MisconceptionTrigger, error) {
	return nil, nil
}
func (f *fakeCurriculum) Outline(context.Context) (string, error) { return "", nil }
func (f *fakeCurriculum) Position(context.Context, fovapi.TopicRef) (fovapi.Position, error) {
	return fovapi.Position{}, nil
}
func (f *fakeCurriculum) PreviousTopic(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicRef, bool, error) {
	if f.failPrev {
		return fovapi.TopicRef{}, false, errors.New("lookup failed")
	}
	for i, id := range f.order {
		if id == topic.ID && i > 0 {
			return fovapi.TopicRef{ID: f.order[i-1]}, true, nil
		}
	}
	return fovapi.TopicRef{}, false, nil
}
func (f *fakeCurriculum) NextTopic(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicRef, bool, error) {
	for i, id := range f.order {
		if id == topic.ID && i < len(f.order)-1 {
			return fovapi.TopicRef{ID: f.order[i+1]}, true, nil
		}
	}
	return fovapi.TopicRef{}, false, nil
}
func (f *fakeCurriculum) TopicAt(ctx context.Context, index int) (fovapi.TopicRef, bool, error) {
	if index >= len(f.order) {
		return fovapi.TopicRef{}, false, nil
	}
	return fovapi.TopicRef{ID: f.order[index]}, true, nil
}
func (f *fakeCurriculum) GenerateContextForQuery(ctx context.Context, query string, topic fovapi.TopicRef, maxTokens int) (string, float64, error) {
	if f.failContent[topic.ID] {
		return "", 0, errors.New("retrieval failed")
	}
	return f.topics[topic.ID], f.relevances[topic.ID], nil
}

func TestExecute_CurrentTopic(t *testing.T) {
	curriculum := &fakeCurriculum{
		topics: map[string]string{"t2": "Photosynthesis details."},
		order:  []string{"t1", "t2", "t3"},
	}
	mgr := fovcontext.New("base", 200_000, nil)
	h := New(curriculum, mgr, 0)
	h.SetCurrentTopic(fovapi.TopicRef{ID: "t2"})

	result, err := h.Execute(context.Background(), fovapi.Request{Query: "light reaction", Scope: fovapi.ScopeCurrentTopic})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 1.0, result.Items[0].Relevance)
}

// Property 9 — expansion effect.
func TestExecute_ExpansionEffect(t *testing.T) {
	curriculum := &fakeCurriculum{
		topics: map[string]string{"t2": "Photosynthesis details."},
		order:  []string{"t1", "t2", "t3"},
	}
	mgr := fovcontext.New("base", 200_000, nil)
	mgr.UpdateWorkingBuffer("Photosynthesis", "seed", nil, nil, nil)
	h := New(curriculum, mgr, 0)
	h.SetCurrentTopic(fovapi.TopicRef{ID: "t2"})

	result, err := h.Execute(context.Background(), fovapi.Request{Query: "light reaction", Scope: fovapi.ScopeCurrentTopic})
	require.NoError(t, err)
	require.NotEmpty(t, result.Items)

	assembled := mgr.BuildContext(nil, "")
	assert.Contains(t, assembled.Working, "## Additional Context")
	for _, item := range result.Items {
		assert.Contains(t, assembled.Working, item.SourceTitle)
	}
}

func TestExecute_CurrentUnit_PartialFailure(t *testing.T) {
	curriculum := &fakeCurriculum{
		topics:   map[string]string{"t1": "Intro.", "t2": "Cells.", "t3": "Genetics."},
		order:    []string{"t1", "t2", "t3"},
		failPrev: true,
	}
	mgr := fovcontext.New("base", 200_000, nil)
	h := New(curriculum, mgr, 300)
	h.SetCurrentTopic(fovapi.TopicRef{ID: "t2"})

	result, err := h.Execute(context.Background(), fovapi.Request{Query: "cells", Scope: fovapi.ScopeCurrentUnit})
	require.NoError(t, err)
	// previous-topic lookup failed (CurriculumLookupFailure), but current and
	// next still succeed: overall expansion succeeds with 2 items.
	assert.Len(t, result.Items, 2)
}

func TestExecute_FullCurriculum_SortsByRelevanceAndCapsAtFive(t *testing.T) {
	order := make([]string, 8)
	topics := map[string]string{}
	relevances := map[string]float64{}
	for i := range order {
		id := fmt.Sprintf("t%d", i)
		order[i] = id
		topics[id] = fmt.Sprintf("content %d", i)
		// Deliberately out of order so the handler's own sort is exercised.
		relevances[id] = float64((i*37+5)%8) / 8.0
	}
	curriculum := &fakeCurriculum{topics: topics, relevances: relevances, order: order}
	mgr := fovcontext.New("base", 200_000, nil)
	h := New(curriculum, mgr, 500)

	result, err := h.Execute(context.Background(), fovapi.Request{Query: "q", Scope: fovapi.ScopeFullCurriculum})
	require.NoError(t, err)
	require.LessOrEqual(t, len(result.Items), 5)
	for i := 1; i < len(result.Items); i++ {
		assert.GreaterOrEqual(t, result.Items[i-1].Relevance, result.Items[i].Relevance)
	}
}

func TestExecute_EmptyQuery_InvalidInput(t *testing.T) {
	h := New(&fakeCurriculum{}, nil, 0)
	_, err := h.Execute(context.Background(), fovapi.Request{Query: "", Scope: fovapi.ScopeCurrentTopic})
	assert.ErrorIs(t, err, fovapi.ErrInvalidInput)
}

func TestExecute_MissingCurriculum(t *testing.T) {
	h := New(nil, nil, 0)
	_, err := h.Execute(context.Background(), fovapi.Request{Query: "q", Scope: fovapi.ScopeCurrentTopic})
	assert.ErrorIs(t, err, fovapi.ErrMissingCollaborator)
}

func TestExecute_RelatedTopicsFallsThroughToCurrentUnit(t *testing.T) {
	curriculum := &fakeCurriculum{
		topics: map[string]string{"t1": "Intro.", "t2": "Cells.", "t3": "Genetics."},
		order:  []string{"t1", "t2", "t3"},
	}
	mgr := fovcontext.New("base", 200_000, nil)
	h := New(curriculum, mgr, 300)
	h.SetCurrentTopic(fovapi.TopicRef{ID: "t2"})

	result, err := h.Execute(context.Background(), fovapi.Request{Query: "cells", Scope: fovapi.ScopeRelatedTopics})
	require.NoError(t, err)
	assert.Len(t, result.Items, 3)
}
