package render

import (
	"fmt"
	"strings"

	"fovtutor/internal/fov/fovapi"
	"fovtutor/internal/tokenest"
)

// Working renders a Working Buffer snapshot to plain text under budgetTokens,
// using priority-ordered inclusion: 1 topic title+outline, 2 objectives,
// 3 glossary, 4 misconception triggers. Alternative explanations are never
// rendered here (spec.md §9 Open Questions) — they stay available to the
// coordinator for targeted replies.
func Working(w fovapi.Working, budgetTokens int) string {
	if w.TopicTitle == "" {
		return ""
	}

	header := fmt.Sprintf("Topic: %s\n", w.TopicTitle)
	// Priority 1 is special: unlike every other section, it is truncated to
	// fit rather than all-or-nothing dropped, because it is the reason the
	// Working Buffer exists at all — there is nothing "higher priority" to
	// fall back to. The header is always included, even when it alone exceeds
	// budgetTokens; only the outline content that follows it is clipped.
	remainingChars := tokenest.CharsForBudget(budgetTokens) - len([]rune(header))
	topicBlock := header
	if remainingChars > 0 && w.TopicContent != "" {
		content := []rune(w.TopicContent)
		if len(content) > remainingChars {
			content = content[:remainingChars]
		}
		topicBlock += string(content)
	}

	writer := NewWriter(budgetTokens, nil)
	// Seed the writer with the already-built, already-clipped priority-1
	// block so its accounting matches what we actually emit.
	writer.ForceAppend(topicBlock)

	// Sections below are tried in priority order and stop at the first one
	// that doesn't fit: included sections form a prefix of this list.
	if len(w.Objectives) > 0 {
		var b strings.Builder
		b.WriteString("Learning objectives:\n")
		for _, o := range w.Objectives {
			b.WriteString("- ")
			b.WriteString(o)
			b.WriteString("\n")
		}
		if !writer.TryAppend(strings.TrimRight(b.String(), "\n")) {
			return writer.String()
		}
	}

	if len(w.Glossary) > 0 {
		var b strings.Builder
		b.WriteString("Glossary:\n")
		for _, g := range w.Glossary {
			b.WriteString("- ")
			b.WriteString(g.Term)
			b.WriteString(": ")
			b.WriteString(g.Definition)
			b.WriteString("\n")
		}
		if !writer.TryAppend(strings.TrimRight(b.String(), "\n")) {
			return writer.String()
		}
	}

	if len(w.Misconceptions) > 0 {
		var b strings.Builder
		for i, m := range w.Misconceptions {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(fmt.Sprintf("If student says '%s': %s", m.TriggerPhrase, m.Remediation))
		}
		if !writer.TryAppend(b.String()) {
			return writer.String()
		}
	}

	return writer.String()
}
