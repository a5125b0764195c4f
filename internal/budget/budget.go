// Package budget implements the Budget Model: classifying a target LLM by
// its context window into a tier, and deriving the fixed per-buffer token
// budgets and verbatim turn count for that tier.
//
// BudgetFor is pure and total, grounded the same way the teacher's
// ContextBudget (see other_examples/..._context_budget.go.go) derives fixed
// percentages from a context window, except here every number is a fixed
// absolute target per SPEC_FULL.md §4.1 rather than a percentage split.
package budget

import "fmt"

// Tier classifies a target LLM by its advertised context window.
type Tier string

const (
	TierCloud    Tier = "cloud"
	TierMid      Tier = "mid"
	TierOnDevice Tier = "on-device"
	TierTiny     Tier = "tiny"
)

// Config is an immutable set of token budgets derived from a single context
// window size. The four per-buffer budgets always sum to Total.
type Config struct {
	Tier       Tier
	Total      int
	Immediate  int
	Working    int
	Episodic   int
	Semantic   int
	TurnCount  int
	WindowUsed int
}

// tierSpec is one row of the fixed tier table (spec.md §4.1). Values are
// absolute token targets, not percentages.
type tierSpec struct {
	tier      Tier
	minWindow int
	total     int
	immediate int
	working   int
	episodic  int
	semantic  int
	turns     int
}

// tierTable is ordered from largest minWindow to smallest so BudgetFor can
// pick the first row the window satisfies.
var tierTable = []tierSpec{
	{TierCloud, 128_000, 12_000, 3_000, 5_000, 2_500, 1_500, 10},
	{TierMid, 32_000, 8_000, 2_000, 3_500, 1_500, 1_000, 7},
	{TierOnDevice, 8_000, 4_000, 1_200, 1_500, 800, 500, 5},
	{TierTiny, 0, 2_000, 800, 700, 300, 200, 3},
}

// BudgetFor classifies contextWindowTokens into a tier and returns its fixed
// budget configuration. Negative windows are treated as zero.
func BudgetFor(contextWindowTokens int) Config {
	if contextWindowTokens < 0 {
		contextWindowTokens = 0
	}
	for _, row := range tierTable {
		if contextWindowTokens >= row.minWindow {
			return Config{
				Tier:       row.tier,
				Total:      row.total,
				Immediate:  row.immediate,
				Working:    row.working,
				Episodic:   row.episodic,
				Semantic:   row.semantic,
				TurnCount:  row.turns,
				WindowUsed: contextWindowTokens,
			}
		}
	}
	// Unreachable: the last row has minWindow 0.
	last := tierTable[len(tierTable)-1]
	return Config{
		Tier: last.tier, Total: last.total, Immediate: last.immediate,
		Working: last.working, Episodic: last.episodic, Semantic: last.semantic,
		TurnCount: last.turns, WindowUsed: contextWindowTokens,
	}
}

// BudgetForModel classifies the named model by looking up its context window
// through ModelWindowLookup, then applies BudgetFor.
func BudgetForModel(model string) Config {
	return BudgetFor(WindowForModel(model))
}

// String renders a short human summary, mirroring the teacher's
// ContextBudget.GetBudgetSummary, useful in logs.
func (c Config) String() string {
	return fmt.Sprintf("budget[tier=%s window=%d total=%d immediate=%d working=%d episodic=%d semantic=%d turns=%d]",
		c.Tier, c.WindowUsed, c.Total, c.Immediate, c.Working, c.Episodic, c.Semantic, c.TurnCount)
}
