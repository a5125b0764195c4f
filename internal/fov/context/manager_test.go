package context

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fovtutor/internal/fov/fovapi"
)

type stubSummarizer struct{ result string }

func (s stubSummarizer) SummarizeTopicContent(_ context.Context, _ string) (string, error) {
	return s.result, nil
}

// Scenario F — Episodic compression.
func TestCompressEpisodic_ScenarioF(t *testing.T) {
	m := New("base", 200_000, stubSummarizer{result: "X"})

	masteries := []float64{0.4, 0.6, 0.8, 0.5, 0.7, 0.9, 0.6, 0.5}
	for i, ml := range masteries {
		m.RecordTopicCompletion(fovapi.TopicSummary{
			TopicID:      string(rune('a' + i)),
			Title:        string(rune('A' + i)),
			Summary:      "summary",
			MasteryLevel: ml,
		})
	}

	require.NoError(t, m.CompressEpisodic(context.Background()))

	m.mu.Lock()
	summaries := append([]fovapi.TopicSummary(nil), m.episodic.TopicSummaries...)
	m.mu.Unlock()

	require.Len(t, summaries, 6)
	assert.Equal(t, "Earlier topics", summaries[0].Title)
	assert.Equal(t, "X", summaries[0].Summary)
	assert.InDelta(t, 0.6, summaries[0].MasteryLevel, 1e-9)
}

// Scenario G — Assembly order.
func TestToSystemMessage_ScenarioG_AssemblyOrder(t *testing.T) {
	m := New("P", 200_000, nil)
	m.UpdateSemanticBuffer("1. Intro\n2. Cells", fovapi.Position{CurriculumTitle: "Bio", TotalTopics: 2}, nil)
	m.RecordTopicCompletion(fovapi.TopicSummary{Title: "Intro", Summary: "covered", MasteryLevel: 0.5})
	m.UpdateWorkingBuffer("Cells", "Cells are the basic unit of life.", []string{"Identify organelles"}, nil, nil)
	m.SetCurrentSegment(&fovapi.Segment{ID: "seg1", Content: "Cells have membranes."})

	out := m.ToSystemMessage()

	require.True(t, strings.HasPrefix(out, "P"))

	idxSemantic := strings.Index(out, "## CURRICULUM OVERVIEW")
	idxEpisodic := strings.Index(out, "## SESSION HISTORY")
	idxWorking := strings.Index(out, "## CURRENT TOPIC CONTEXT")
	idxImmediate := strings.Index(out, "## IMMEDIATE CONTEXT")

	require.NotEqual(t, -1, idxSemantic)
	require.NotEqual(t, -1, idxEpisodic)
	require.NotEqual(t, -1, idxWorking)
	require.NotEqual(t, -1, idxImmediate)

	assert.True(t, idxSemantic < idxEpisodic)
	assert.True(t, idxEpisodic < idxWorking)
	assert.True(t, idxWorking < idxImmediate)
}

// Property 5: cap invariants.
func TestRecordTopicCompletion_CapInvariant(t *testing.T) {
	m := New("base", 32_000, nil)
	for i := 0; i < 15; i++ {
		m.RecordTopicCompletion(fovapi.TopicSummary{TopicID: string(rune('a' + i))})
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.episodic.TopicSummaries, 10)
	assert.Equal(t, string(rune('a'+5)), m.episodic.TopicSummaries[0].TopicID)
	assert.Equal(t, string(rune('a'+14)), m.episodic.TopicSummaries[9].TopicID)
}

func TestRecordUserQuestion_CapInvariant(t *testing.T) {
	m := New("base", 32_000, nil)
	for i := 0; i < 12; i++ {
		m.RecordUserQuestion("q", false)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Len(t, m.episodic.RecentQuestions, 10)
}

// Property 6: assembly determinism.
func TestToSystemMessage_Deterministic(t *testing.T) {
	m := New("base prompt", 200_000, nil)
	m.UpdateWorkingBuffer("Topic", "content", nil, nil, nil)

	a := m.ToSystemMessage()
	b := m.ToSystemMessage()
	assert.Equal(t, a, b)
}

// Property 10: isolation between sessions.
func TestManager_Isolation(t *testing.T) {
	s1 := New("base", 200_000, nil)
	s2 := New("base", 200_000, nil)

	s1.UpdateWorkingBuffer("S1 topic", "S1 content", nil, nil, nil)

	assert.Equal(t, "base", s2.ToSystemMessage())
}

// Property 9: expansion effect.
func TestExpandWorkingBuffer_AppearsInBuild(t *testing.T) {
	m := New("base", 200_000, nil)
	m.UpdateWorkingBuffer("Topic", "seed content", nil, nil, nil)
	m.ExpandWorkingBuffer([]fovapi.RetrievedContent{
		{SourceTitle: "Unit 3", Content: "extra detail", Relevance: 0.9},
	})

	assembled := m.BuildContext(nil, "")
	assert.Contains(t, assembled.Working, "## Additional Context")
	assert.Contains(t, assembled.Working, "Unit 3")
}

func TestBuildContext_TurnCountRespected(t *testing.T) {
	m := New("base", 4_096, nil) // TINY tier: turn count 3
	history := make([]fovapi.Turn, 10)
	for i := range history {
		history[i] = fovapi.Turn{Role: fovapi.RoleUser, Content: "msg"}
	}

	assembled := m.BuildContext(history, "")
	assert.Equal(t, 3, assembled.TurnCountUsed)
}
