package render

import (
	"fmt"
	"strings"

	"fovtutor/internal/fov/fovapi"
)

// Episodic renders an Episodic Buffer snapshot to plain text under
// budgetTokens, using priority-ordered inclusion: 1 learner-signals line,
// 2 the last five topic summaries (most recent first), 3 the last three
// recent questions (most recent first).
func Episodic(ep fovapi.Episodic, budgetTokens int) string {
	writer := NewWriter(budgetTokens, nil)

	if line := signalsLine(ep.Signals); line != "" {
		writer.TryAppend(line)
	}

	summaries := ep.TopicSummaries
	if len(summaries) > 5 {
		summaries = summaries[len(summaries)-5:]
	}
	for i := len(summaries) - 1; i >= 0; i-- {
		s := summaries[i]
		block := fmt.Sprintf("Completed: %s (mastery %.2f) — %s", s.Title, s.MasteryLevel, s.Summary)
		if !writer.TryAppend(block) {
			break
		}
	}

	questions := ep.RecentQuestions
	if len(questions) > 3 {
		questions = questions[len(questions)-3:]
	}
	for i := len(questions) - 1; i >= 0; i-- {
		q := questions[i]
		if q.Text == "" {
			continue
		}
		if !writer.TryAppend(fmt.Sprintf("Asked: %s", q.Text)) {
			break
		}
	}

	return writer.String()
}

func signalsLine(s fovapi.LearnerSignals) string {
	var parts []string
	if s.Pace != nil {
		parts = append(parts, fmt.Sprintf("pace=%s", *s.Pace))
	}
	if s.StylePreference != nil {
		parts = append(parts, fmt.Sprintf("preferredStyle=%s", *s.StylePreference))
	}
	if s.ClarificationCount > 0 {
		parts = append(parts, fmt.Sprintf("clarifications=%d", s.ClarificationCount))
	}
	if s.RepetitionCount > 0 {
		parts = append(parts, fmt.Sprintf("repetitions=%d", s.RepetitionCount))
	}
	if s.MeanThinkTime != nil {
		parts = append(parts, fmt.Sprintf("meanThinkTime=%s", s.MeanThinkTime.Round(100_000_000)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Learner signals: " + strings.Join(parts, ", ")
}
