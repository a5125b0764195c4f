package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fovtutor/internal/fov/confidence"
	fovcontext "fovtutor/internal/fov/context"
	"fovtutor/internal/fov/expansion"
	"fovtutor/internal/fov/fovapi"
)

type fakeCurriculum struct {
	meta           fovapi.TopicMetadata
	glossary       []fovapi.GlossaryTerm
	misconceptions []fovapi.MisconceptionTrigger
	position       fovapi.Position
	outline        string
	failMeta       bool
}

func (f *fakeCurriculum) TopicMetadata(context.Context, fovapi.TopicRef) (fovapi.TopicMetadata, error) {
	if f.failMeta {
		return fovapi.TopicMetadata{}, errors.New("lookup failed")
	}
	return f.meta, nil
}
func (f *fakeCurriculum) Glossary(context.Context, fovapi.TopicRef, string) ([]fovapi.GlossaryTerm, error) {
	return f.glossary, nil
}
func (f *fakeCurriculum) Misconceptions(context.Context, fovapi.TopicRef) ([]fovapi.MisconceptionTrigger, error) {
	return f.misconceptions, nil
}
func (f *fakeCurriculum) Outline(context.Context) (string, error) { return f.outline, nil }
func (f *fakeCurriculum) Position(context.Context, fovapi.TopicRef) (fovapi.Position, error) {
	return f.position, nil
}
func (f *fakeCurriculum) PreviousTopic(context.Context, fovapi.TopicRef) (fovapi.TopicRef, bool, error) {
	return fovapi.TopicRef{}, false, nil
}
func (f *fakeCurriculum) NextTopic(context.Context, fovapi.TopicRef) (fovapi.TopicRef, bool, error) {
	return fovapi.TopicRef{}, false, nil
}
func (f *fakeCurriculum) TopicAt(context.Context, int) (fovapi.TopicRef, bool, error) {
	return fovapi.TopicRef{}, false, nil
}
func (f *fakeCurriculum) GenerateContextForQuery(context.Context, string, fovapi.TopicRef, int) (string, float64, error) {
	return "", 0, nil
}

func TestBuildFoveatedMessages_Disabled_ReturnsHistoryVerbatim(t *testing.T) {
	mgr := fovcontext.New("base", 200_000, nil)
	c := New(mgr)
	c.SetEnabled(false)

	history := []fovapi.Turn{
		{Role: fovapi.RoleUser, Content: "hi"},
		{Role: fovapi.RoleAssistant, Content: "hello"},
	}
	messages := c.BuildFoveatedMessages(context.Background(), history, "")
	require.Len(t, messages, 2)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, "hello", messages[1].Content)
}

func TestBuildFoveatedMessages_Enabled_SystemMessageFirst(t *testing.T) {
	mgr := fovcontext.New("base prompt", 200_000, nil)
	c := New(mgr)
	require.NoError(t, c.SetCurrentTopic(context.Background(), fovapi.TopicRef{ID: "t1"}))

	history := []fovapi.Turn{
		{Role: fovapi.RoleUser, Content: "hi"},
		{Role: fovapi.RoleAssistant, Content: "hello"},
	}
	messages := c.BuildFoveatedMessages(context.Background(), history, "wait, what?")
	require.NotEmpty(t, messages)
	assert.Equal(t, fovapi.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "base prompt")
}

// Scenario C — barge-in priority, exercised through the coordinator façade.
func TestHandleBargeIn_SegmentAndUtteranceFlowThrough(t *testing.T) {
	mgr := fovcontext.New("base", 200_000, nil)
	c := New(mgr)

	history := []fovapi.Turn{{Role: fovapi.RoleUser, Content: "earlier"}}
	messages := c.HandleBargeIn(context.Background(), history, fovapi.Segment{ID: "seg1", Content: "mitosis"}, "wait, what about meiosis?")

	require.NotEmpty(t, messages)
	assert.Equal(t, fovapi.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "wait, what about meiosis?")
}

func TestSetCurrentTopic_PopulatesWorkingAndSemanticBuffers(t *testing.T) {
	mgr := fovcontext.New("base", 200_000, nil)
	curriculum := &fakeCurriculum{
		meta:     fovapi.TopicMetadata{Title: "Cell Division", Outline: "Mitosis overview", Objectives: []string{"Understand phases"}},
		outline:  "1. Intro\n2. Cell Division\n3. Genetics",
		position: fovapi.Position{CurriculumTitle: "Biology 101", CurrentTopicIdx: 1, TotalTopics: 3},
	}
	h := expansion.New(curriculum, mgr, 0)
	c := New(mgr, WithExpansionHandler(h, curriculum))

	require.NoError(t, c.SetCurrentTopic(context.Background(), fovapi.TopicRef{ID: "t2"}))

	msg := mgr.ToSystemMessage()
	assert.Contains(t, msg, "Cell Division")
	assert.Contains(t, msg, "Biology 101")
}

func TestSetCurrentTopic_LookupFailure_ReturnsErrorLeavesBuffersUnchanged(t *testing.T) {
	mgr := fovcontext.New("base", 200_000, nil)
	curriculum := &fakeCurriculum{failMeta: true}
	c := New(mgr, WithExpansionHandler(expansion.New(curriculum, mgr, 0), curriculum))

	err := c.SetCurrentTopic(context.Background(), fovapi.TopicRef{ID: "t1"})
	assert.Error(t, err)
	assert.Equal(t, "base", mgr.ToSystemMessage())
}

func TestExpandContext_NoHandler_ReturnsEmptyResultNoError(t *testing.T) {
	mgr := fovcontext.New("base", 200_000, nil)
	c := New(mgr)

	result, err := c.ExpandContext(context.Background(), fovapi.Request{Query: "q", Scope: fovapi.ScopeCurrentTopic})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}

func TestAnalyzeResponseConfidence_DelegatesToMonitor(t *testing.T) {
	mgr := fovcontext.New("base", 200_000, nil)
	c := New(mgr, WithMonitor(confidence.New(confidence.WithWeights(confidence.TutoringWeights()))))

	rec, reco := c.AnalyzeResponseConfidence(context.Background(), "I'm not sure, but I think it's roughly around 1492, maybe.")
	assert.Less(t, rec.Confidence, 0.70)
	assert.True(t, reco.ShouldExpand)
}

func TestRecordMethods_ForwardToManager(t *testing.T) {
	mgr := fovcontext.New("base", 200_000, nil)
	c := New(mgr)

	c.RecordUserQuestion("why?", false)
	c.RecordClarificationRequest()
	c.RecordRepetitionRequest()
	c.RecordTopicCompletion(fovapi.TopicSummary{TopicID: "t1", Title: "Intro", MasteryLevel: 0.8})

	msg := mgr.ToSystemMessage()
	assert.Contains(t, msg, "Intro")
}

func TestReset_ClearsBuffersAndTrendHistory(t *testing.T) {
	mgr := fovcontext.New("base", 200_000, nil)
	c := New(mgr)
	c.RecordTopicCompletion(fovapi.TopicSummary{TopicID: "t1", Title: "Intro", MasteryLevel: 0.8})
	c.AnalyzeResponseConfidence(context.Background(), "I'm not sure.")

	c.Reset()

	assert.Equal(t, "base", mgr.ToSystemMessage())
	rec := c.monitor.AnalyzeResponse("confident clear answer")
	assert.Equal(t, fovapi.TrendStable, rec.Trend)
}
