package render

import (
	"fmt"
	"strings"

	"fovtutor/internal/fov/fovapi"
)

// Immediate renders an Immediate Buffer snapshot to plain text under
// budgetTokens, using priority-ordered inclusion: 1 barge-in (always
// force-included, never skipped), 2 current segment, 3 recent turns in
// reverse-chronological order, each labeled "[Role]: content".
func Immediate(im fovapi.Immediate, budgetTokens int) string {
	writer := NewWriter(budgetTokens, nil)

	// Priority 1: a barge-in utterance always makes it in, even alone over
	// budget (spec.md §4.2, §8 property 3) — the student is mid-interruption
	// and dropping it silently would be worse than blowing the budget once.
	if im.BargeIn != "" {
		writer.ForceAppend(fmt.Sprintf("The user just interrupted with: %q", im.BargeIn))
	}

	if im.CurrentSegment != nil && im.CurrentSegment.Content != "" {
		writer.TryAppend(fmt.Sprintf("Currently teaching: %s", im.CurrentSegment.Content))
	}

	for i := len(im.Turns) - 1; i >= 0; i-- {
		t := im.Turns[i]
		if t.Content == "" {
			continue
		}
		if !writer.TryAppend(fmt.Sprintf("[%s]: %s", capitalizeRole(t.Role), t.Content)) {
			break
		}
	}

	return writer.String()
}

func capitalizeRole(r fovapi.Role) string {
	s := string(r)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
