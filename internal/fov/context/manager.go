// Package context owns the four FOV buffers and serializes every mutation
// and read against them (spec.md §5: one owner per session, mutex-guarded
// rather than actor/channel, since Go's natural single-writer primitive is
// a mutex, not a message-passing executor).
package context

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"fovtutor/internal/budget"
	"fovtutor/internal/fov/fovapi"
	"fovtutor/internal/fov/render"
	"fovtutor/internal/observability"
	"fovtutor/internal/tokenest"
)

const (
	topicSummaryCap  = 10
	userQuestionCap  = 10
	compressionFloor = 5 // compress_episodic requires >5 summaries
	compressionTake  = 3 // replace the three oldest with one
)

// Manager owns the four buffers for one session. All exported methods are
// safe for concurrent use; internally they share a single mutex, so callers
// never need their own locking (spec.md §5 ordering guarantee).
type Manager struct {
	mu sync.Mutex

	basePrompt string
	budgetCfg  budget.Config

	immediate fovapi.Immediate
	working   fovapi.Working
	episodic  fovapi.Episodic
	semantic  fovapi.Semantic

	summarizer fovapi.SummarizerPort
}

// New creates a Manager with the given base system prompt and an initial
// budget derived from contextWindowTokens. summarizer may be nil: compress
// is then a supported no-op (spec.md §7 SummarizerFailure / MissingCollaborator).
func New(basePrompt string, contextWindowTokens int, summarizer fovapi.SummarizerPort) *Manager {
	return &Manager{
		basePrompt: basePrompt,
		budgetCfg:  budget.BudgetFor(contextWindowTokens),
		summarizer: summarizer,
	}
}

// UpdateModelConfig recomputes the budget configuration from model's
// advertised context window.
func (m *Manager) UpdateModelConfig(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgetCfg = budget.BudgetForModel(model)
}

// BuildContext refreshes the immediate buffer from history (the last
// turn_count entries verbatim), optionally records a barge-in utterance,
// then renders all four buffers under their budgets.
func (m *Manager) BuildContext(history []fovapi.Turn, bargeIn string) fovapi.Assembled {
	m.mu.Lock()
	defer m.mu.Unlock()

	turnCount := m.budgetCfg.TurnCount
	start := len(history) - turnCount
	if start < 0 {
		start = 0
	}
	m.immediate.Turns = append([]fovapi.Turn(nil), history[start:]...)
	m.immediate.BargeIn = bargeIn

	return fovapi.Assembled{
		BaseSystemPrompt: m.basePrompt,
		Semantic:         render.Semantic(m.semantic, m.budgetCfg.Semantic),
		Episodic:         render.Episodic(m.episodic, m.budgetCfg.Episodic),
		Working:          render.Working(m.working, m.budgetCfg.Working),
		Immediate:        render.Immediate(m.immediate, m.budgetCfg.Immediate),
		TurnCountUsed:    len(m.immediate.Turns),
		Budget:           snapshot(m.budgetCfg),
		AssembledAt:      time.Now(),
	}
}

func snapshot(c budget.Config) fovapi.BudgetSnapshot {
	return fovapi.BudgetSnapshot{
		Tier:      string(c.Tier),
		Total:     c.Total,
		Immediate: c.Immediate,
		Working:   c.Working,
		Episodic:  c.Episodic,
		Semantic:  c.Semantic,
		TurnCount: c.TurnCount,
	}
}

// UpdateWorkingBuffer replaces the working buffer atomically.
func (m *Manager) UpdateWorkingBuffer(topicTitle, topicContent string, objectives []string, glossary []fovapi.GlossaryTerm, misconceptions []fovapi.MisconceptionTrigger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.working = fovapi.Working{
		TopicTitle:     topicTitle,
		TopicContent:   topicContent,
		Objectives:     objectives,
		Glossary:       glossary,
		Misconceptions: misconceptions,
	}
}

// ExpandWorkingBuffer appends retrieved items under a "## Additional
// Context" heading, formatted "[sourceTitle]: content", separated by blank
// lines. It never truncates; over-budget trimming happens at render time.
func (m *Manager) ExpandWorkingBuffer(items []fovapi.RetrievedContent) {
	if len(items) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	b.WriteString("## Additional Context\n\n")
	wrote := false
	for _, it := range items {
		if it.Content == "" {
			continue
		}
		if wrote {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s]: %s", it.SourceTitle, it.Content)
		wrote = true
	}

	block := b.String()
	if m.working.TopicContent == "" {
		m.working.TopicContent = block
		return
	}
	m.working.TopicContent = m.working.TopicContent + "\n\n" + block
}

// UpdateSemanticBuffer replaces the semantic buffer atomically.
func (m *Manager) UpdateSemanticBuffer(outline string, position fovapi.Position, dependencies []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.semantic = fovapi.Semantic{Outline: outline, Position: position, Dependencies: dependencies}
}

// SetCurrentSegment writes the immediate buffer's active segment.
func (m *Manager) SetCurrentSegment(segment *fovapi.Segment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.immediate.CurrentSegment = segment
}

// SetAdjacentSegments writes the immediate buffer's adjacent segments.
func (m *Manager) SetAdjacentSegments(segments []fovapi.Segment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.immediate.AdjacentSegments = segments
}

// RecordTopicCompletion appends to episodic topic summaries, keeping only
// the most recent topicSummaryCap entries.
func (m *Manager) RecordTopicCompletion(summary fovapi.TopicSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodic.TopicSummaries = append(m.episodic.TopicSummaries, summary)
	if n := len(m.episodic.TopicSummaries); n > topicSummaryCap {
		m.episodic.TopicSummaries = m.episodic.TopicSummaries[n-topicSummaryCap:]
	}
}

// RecordUserQuestion appends a recent question, capped at userQuestionCap.
func (m *Manager) RecordUserQuestion(text string, answered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodic.RecentQuestions = append(m.episodic.RecentQuestions, fovapi.UserQuestion{
		Text:      text,
		Answered:  answered,
		Timestamp: time.Now(),
	})
	if n := len(m.episodic.RecentQuestions); n > userQuestionCap {
		m.episodic.RecentQuestions = m.episodic.RecentQuestions[n-userQuestionCap:]
	}
}

// RecordClarificationRequest increments the learner-signals clarification counter.
func (m *Manager) RecordClarificationRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodic.Signals.ClarificationCount++
}

// RecordRepetitionRequest increments the learner-signals repetition counter.
func (m *Manager) RecordRepetitionRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodic.Signals.RepetitionCount++
}

// CompressEpisodic replaces the three oldest topic summaries with a single
// "Earlier topics" record when more than five remain and a summarizer is
// attached. A nil summarizer or ctx error is a supported no-op
// (spec.md §7 MissingCollaborator / SummarizerFailure), not an error return.
func (m *Manager) CompressEpisodic(ctx context.Context) error {
	m.mu.Lock()
	summaries := m.episodic.TopicSummaries
	if m.summarizer == nil {
		m.mu.Unlock()
		observability.LoggerWithTrace(ctx).Warn().Msg("compress_episodic_no_summarizer")
		return nil
	}
	if len(summaries) <= compressionFloor {
		m.mu.Unlock()
		return nil
	}
	oldest := append([]fovapi.TopicSummary(nil), summaries[:compressionTake]...)
	rest := append([]fovapi.TopicSummary(nil), summaries[compressionTake:]...)
	m.mu.Unlock()

	var combined strings.Builder
	var meanMastery float64
	for i, s := range oldest {
		if i > 0 {
			combined.WriteString("\n")
		}
		combined.WriteString(s.Summary)
		meanMastery += s.MasteryLevel
	}
	meanMastery /= float64(len(oldest))

	condensed, err := m.summarizer.SummarizeTopicContent(ctx, combined.String())
	if err != nil {
		// SummarizerFailure: skip compression, episodic buffer is unchanged.
		observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("compress_episodic_summarizer_error")
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	merged := append([]fovapi.TopicSummary{{
		Title:        "Earlier topics",
		Summary:      condensed,
		MasteryLevel: meanMastery,
		CompletedAt:  time.Now(),
	}}, rest...)
	m.episodic.TopicSummaries = merged
	return nil
}

// Reset reinitializes all four buffers to empty, for a new session.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.immediate = fovapi.Immediate{}
	m.working = fovapi.Working{}
	m.episodic = fovapi.Episodic{}
	m.semantic = fovapi.Semantic{}
}

// ResetImmediate clears only the immediate buffer, for a topic change.
func (m *Manager) ResetImmediate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.immediate = fovapi.Immediate{}
}

// ToSystemMessage flattens the current buffer state to a single system
// message: base prompt, then semantic/episodic/working/immediate under
// their headers, one blank line between blocks, empty blocks omitted
// (spec.md §4.3 assembly contract).
func (m *Manager) ToSystemMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toSystemMessageLocked()
}

func flatten(basePrompt, semantic, episodic, working, immediate string) string {
	var blocks []string
	if basePrompt != "" {
		blocks = append(blocks, basePrompt)
	}
	if semantic != "" {
		blocks = append(blocks, "## CURRICULUM OVERVIEW\n"+semantic)
	}
	if episodic != "" {
		blocks = append(blocks, "## SESSION HISTORY\n"+episodic)
	}
	if working != "" {
		blocks = append(blocks, "## CURRENT TOPIC CONTEXT\n"+working)
	}
	if immediate != "" {
		blocks = append(blocks, "## IMMEDIATE CONTEXT\n"+immediate)
	}
	return strings.Join(blocks, "\n\n")
}

// EstimatedTokens returns the character-ratio token estimate of the current
// buffer state, for callers that want a budget check without a full build.
func (m *Manager) EstimatedTokens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return tokenest.Estimate(m.toSystemMessageLocked())
}

// toSystemMessageLocked is ToSystemMessage's body without acquiring the
// lock, for callers that already hold it.
func (m *Manager) toSystemMessageLocked() string {
	semantic := render.Semantic(m.semantic, m.budgetCfg.Semantic)
	episodic := render.Episodic(m.episodic, m.budgetCfg.Episodic)
	working := render.Working(m.working, m.budgetCfg.Working)
	immediate := render.Immediate(m.immediate, m.budgetCfg.Immediate)
	return flatten(m.basePrompt, semantic, episodic, working, immediate)
}

// BudgetConfig returns a copy of the active budget configuration.
func (m *Manager) BudgetConfig() budget.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.budgetCfg
}
