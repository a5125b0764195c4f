package budget

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// defaultModelWindow is used when no entry in the lookup table matches and no
// environment override is set.
const defaultModelWindow = 8_192

// builtinModelWindows is the case-folded substring table described in
// SPEC_FULL.md §4.1, seeded from the same model families the teacher's
// internal/llm.ContextSize ships (translated to the shorter IDs a voice
// tutor config would name a model by).
var builtinModelWindows = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4.1":       1_047_576,
	"gpt-4-turbo":   128_000,
	"gpt-4":         8_192,
	"gpt-3.5-turbo": 16_385,
	"gpt-5":         400_000,

	"claude-3":   200_000,
	"claude-3.5": 200_000,
	"claude-4":   200_000,

	"gemini-1.5": 1_000_000,
	"gemini-2.0": 1_048_576,
	"gemini-2.5": 1_048_576,

	"llama3.2": 128_000,
	"llama3":   8_192,
	"llama2":   4_096,

	"phi": 4_096,
}

// ModelWindowLookup is the user-extensible, case-folded substring table the
// external contract (spec.md §4.1, §6) requires: hosts can add or override
// entries at runtime without touching this package's source, by calling
// RegisterModelWindow.
type ModelWindowLookup struct {
	mu      sync.RWMutex
	entries map[string]int
}

var defaultLookup = newModelWindowLookup()

func newModelWindowLookup() *ModelWindowLookup {
	l := &ModelWindowLookup{entries: make(map[string]int, len(builtinModelWindows))}
	for k, v := range builtinModelWindows {
		l.entries[k] = v
	}
	return l
}

// Register adds or overrides a substring -> window-size entry. The substring
// is matched case-folded against model identifiers passed to WindowFor.
func (l *ModelWindowLookup) Register(substring string, windowTokens int) {
	if strings.TrimSpace(substring) == "" || windowTokens <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[strings.ToLower(substring)] = windowTokens
}

// WindowFor resolves model to a context window size in tokens. Unknown
// models fall back to an environment override (MODEL_WINDOW_DEFAULT_TOKENS)
// or defaultModelWindow.
func (l *ModelWindowLookup) WindowFor(model string) int {
	folded := strings.ToLower(strings.TrimSpace(model))
	if folded == "" {
		return defaultModelWindow
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if v, ok := l.entries[folded]; ok {
		return v
	}
	// Longest matching substring wins, so "gpt-4.1-mini" resolving against
	// both "gpt-4" and "gpt-4.1" picks the more specific entry.
	best := ""
	bestWindow := 0
	for substr, window := range l.entries {
		if strings.Contains(folded, substr) && len(substr) > len(best) {
			best = substr
			bestWindow = window
		}
	}
	if best != "" {
		return bestWindow
	}
	if v, ok := envOverrideInt("MODEL_WINDOW_DEFAULT_TOKENS"); ok {
		return v
	}
	return defaultModelWindow
}

func envOverrideInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// RegisterModelWindow extends the package-level default lookup table. Hosts
// call this at startup to teach the module about self-hosted or newly
// released models without a code change, per the §6 external contract.
func RegisterModelWindow(substring string, windowTokens int) {
	defaultLookup.Register(substring, windowTokens)
}

// WindowForModel resolves model against the package-level default lookup
// table.
func WindowForModel(model string) int {
	return defaultLookup.WindowFor(model)
}

// DefaultLookup exposes the package-level table for callers that want an
// injectable *ModelWindowLookup instead of the package-level functions.
func DefaultLookup() *ModelWindowLookup { return defaultLookup }
