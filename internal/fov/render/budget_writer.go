// Package render implements the four pure Buffer Renderers and the shared
// "budgeted writer" primitive they're all built from (spec.md §9 Design
// Notes: "the most leverage-per-line part of the reimplementation").
package render

import (
	"strings"

	"fovtutor/internal/tokenest"
)

// Writer accumulates text blocks under a fixed token ceiling, enforcing the
// priority-ordered inclusion rule every renderer needs: a candidate block is
// included only if it fits in what remains of the budget; otherwise it is
// skipped and later, lower-priority blocks are still tried.
type Writer struct {
	budget    int
	used      int
	blocks    []string
	estimate  func(string) int
}

// NewWriter creates a Writer with the given token budget. A nil estimate
// func defaults to tokenest.Estimate.
func NewWriter(tokenBudget int, estimate func(string) int) *Writer {
	if estimate == nil {
		estimate = tokenest.Estimate
	}
	if tokenBudget < 0 {
		tokenBudget = 0
	}
	return &Writer{budget: tokenBudget, estimate: estimate}
}

// TryAppend includes block if it fits within the remaining budget. Returns
// whether it was included. An empty block is always a no-op that returns
// true (nothing to skip).
func (w *Writer) TryAppend(block string) bool {
	if block == "" {
		return true
	}
	cost := w.estimate(block)
	if w.used+cost > w.budget {
		return false
	}
	w.blocks = append(w.blocks, block)
	w.used += cost
	return true
}

// ForceAppend includes block unconditionally, for the one exception the
// spec carves out: a barge-in utterance is always rendered even if it alone
// exceeds the budget (spec.md §4.2, §8 property 3).
func (w *Writer) ForceAppend(block string) {
	if block == "" {
		return
	}
	w.blocks = append(w.blocks, block)
	w.used += w.estimate(block)
}

// Remaining returns the unused portion of the budget; never negative.
func (w *Writer) Remaining() int {
	if r := w.budget - w.used; r > 0 {
		return r
	}
	return 0
}

// String joins the accepted blocks with a blank line between them.
func (w *Writer) String() string {
	return strings.Join(w.blocks, "\n\n")
}

// Len reports how many blocks have been accepted so far.
func (w *Writer) Len() int { return len(w.blocks) }
