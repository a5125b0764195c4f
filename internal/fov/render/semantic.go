package render

import (
	"fmt"

	"fovtutor/internal/fov/fovapi"
	"fovtutor/internal/tokenest"
)

// Semantic renders a Semantic Buffer snapshot to plain text under
// budgetTokens, using priority-ordered inclusion: 1 the curriculum position
// line, 2 the outline, truncated to fit with a "…" suffix when it doesn't
// fit whole. The outline is omitted only when no budget remains after the
// position line.
func Semantic(s fovapi.Semantic, budgetTokens int) string {
	writer := NewWriter(budgetTokens, nil)

	if line := positionLine(s.Position); line != "" {
		writer.TryAppend(line)
	}

	if s.Outline != "" {
		remaining := tokenest.CharsForBudget(writer.Remaining())
		outline := []rune(s.Outline)
		if remaining <= 0 {
			// Nothing left at all: still no-op rather than force a block in,
			// since unlike Working's topic content there is already a
			// position line anchoring the model.
		} else if len(outline) <= remaining {
			writer.ForceAppend(string(outline))
		} else {
			suffixLen := len([]rune("…"))
			cut := remaining - suffixLen
			if cut < 0 {
				cut = 0
			}
			writer.ForceAppend(string(outline[:cut]) + "…")
		}
	}

	return writer.String()
}

func positionLine(p fovapi.Position) string {
	if p.CurriculumTitle == "" && p.TotalTopics == 0 {
		return ""
	}
	pct := 0
	if p.TotalTopics > 0 {
		pct = (p.CurrentTopicIdx + 1) * 100 / p.TotalTopics
	}
	unit := p.CurrentUnitTitle
	if unit == "" {
		unit = "—"
	}
	return fmt.Sprintf("Course %s | Unit %s | Progress: topic %d of %d (%d%%)",
		p.CurriculumTitle, unit, p.CurrentTopicIdx+1, p.TotalTopics, pct)
}
