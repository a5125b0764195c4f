// Package confidence analyzes LLM tutor replies for lexical uncertainty
// signals and turns them into expansion recommendations (spec.md §4.4).
package confidence

import (
	"strings"
	"sync"

	"fovtutor/internal/fov/fovapi"
)

const maxHistory = 10

var highSignalMarkers = map[fovapi.Marker]bool{
	fovapi.MarkerKnowledgeGap:  true,
	fovapi.MarkerOutOfScope:    true,
	fovapi.MarkerTopicBoundary: true,
}

// Monitor is a per-session confidence analyzer. It holds a small sliding
// history of recent confidence scores for trend detection; unlike the
// buffer renderers, it is stateful, so spec.md §5 requires callers to
// confine it to a single logical executor — Monitor itself is not
// internally synchronized beyond a mutex guarding the history slice.
type Monitor struct {
	mu      sync.Mutex
	history []float64

	weights Weights
	phrases PhraseTable
}

// Option configures a Monitor during construction, following the same
// functional-options shape as internal/rag/service.Option.
type Option func(*Monitor)

// WithWeights overrides the default preset's dimension weights and thresholds.
func WithWeights(w Weights) Option { return func(m *Monitor) { m.weights = w } }

// WithPhraseTable overrides the built-in marker/scoring phrase dictionaries.
func WithPhraseTable(t PhraseTable) Option { return func(m *Monitor) { m.phrases = t } }

// New creates a Monitor using the default preset unless overridden by opts.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		weights: DefaultWeights(),
		phrases: defaultPhraseTable(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Reset clears the trend history in place, leaving weights and phrase table
// configuration untouched, so a session reset doesn't discard WithWeights or
// WithPhraseTable options supplied at construction.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
}

// AnalyzeResponse is a pure function of the case-folded text plus the
// monitor's own trend history (spec.md §4.4).
func (m *Monitor) AnalyzeResponse(text string) fovapi.ConfidenceRecord {
	folded := strings.ToLower(text)

	hedging := meanMatchWeight(folded, m.phrases.Hedging)
	deflection := maxMatchWeight(folded, m.phrases.Deflection)
	gap := maxMatchWeight(folded, m.phrases.KnowledgeGap)
	vague := vagueScore(folded, m.phrases.Vague)

	uncertainty := hedging*m.weights.Hedging +
		deflection*m.weights.Deflection +
		gap*m.weights.KnowledgeGap +
		vague*m.weights.Vague

	confidence := clamp01(1 - uncertainty)

	markers := m.detectMarkers(folded, hedging, deflection, gap)

	m.mu.Lock()
	m.history = append(m.history, confidence)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	trend := computeTrend(m.history)
	m.mu.Unlock()

	return fovapi.ConfidenceRecord{
		Confidence: confidence,
		Dimensions: fovapi.DimensionScores{
			Hedging:      hedging,
			Deflection:   deflection,
			KnowledgeGap: gap,
			Vague:        vague,
		},
		Markers: markers,
		Trend:   trend,
	}
}

func (m *Monitor) detectMarkers(folded string, hedging, deflection, gap float64) map[fovapi.Marker]bool {
	markers := map[fovapi.Marker]bool{}
	if hedging > 0 {
		markers[fovapi.MarkerHedging] = true
	}
	if deflection > 0 {
		markers[fovapi.MarkerDeflection] = true
	}
	if gap > 0 {
		markers[fovapi.MarkerKnowledgeGap] = true
	}
	if containsAny(folded, m.phrases.TopicBoundaryMarkers) {
		markers[fovapi.MarkerTopicBoundary] = true
	}
	if containsAny(folded, m.phrases.OutOfScopeMarkers) {
		markers[fovapi.MarkerOutOfScope] = true
	}
	if containsAny(folded, m.phrases.ClarificationNeededMarkers) {
		markers[fovapi.MarkerClarificationNeeded] = true
	}
	if containsAny(folded, m.phrases.SpeculationMarkers) {
		markers[fovapi.MarkerSpeculation] = true
	}
	return markers
}

// Recommend turns a ConfidenceRecord into an expansion decision per the
// rules in spec.md §4.4.
func (m *Monitor) Recommend(rec fovapi.ConfidenceRecord) fovapi.Recommendation {
	highSignal := false
	for marker := range rec.Markers {
		if highSignalMarkers[marker] {
			highSignal = true
			break
		}
	}

	declining := rec.Trend == fovapi.TrendDeclining
	shouldExpand := rec.Confidence < m.weights.ExpansionThreshold ||
		highSignal ||
		(declining && rec.Confidence < m.weights.TrendThreshold)

	if !shouldExpand {
		return fovapi.Recommendation{ShouldExpand: false}
	}

	priority := fovapi.PriorityLow
	switch {
	case rec.Confidence < 0.3:
		priority = fovapi.PriorityHigh
	case rec.Confidence < 0.5:
		priority = fovapi.PriorityMedium
	}

	scope := fovapi.ScopeCurrentTopic
	switch {
	case rec.Markers[fovapi.MarkerOutOfScope] || rec.Markers[fovapi.MarkerTopicBoundary]:
		scope = fovapi.ScopeRelatedTopics
	case rec.Dimensions.KnowledgeGap > 0.5:
		scope = fovapi.ScopeCurrentUnit
	}

	reason := ""
	switch {
	case rec.Dimensions.KnowledgeGap > 0:
		reason = "knowledge gap detected"
	case rec.Dimensions.Hedging > 0:
		reason = "hedging detected"
	case rec.Dimensions.Deflection > 0:
		reason = "deflection detected"
	case rec.Markers[fovapi.MarkerClarificationNeeded]:
		reason = "clarification needed"
	case declining:
		reason = "confidence declining"
	default:
		reason = "low overall confidence"
	}

	return fovapi.Recommendation{
		ShouldExpand: true,
		Priority:     priority,
		Scope:        scope,
		Reason:       reason,
	}
}

func meanMatchWeight(text string, table []PhraseWeight) float64 {
	sum, n := 0.0, 0
	for _, pw := range table {
		if strings.Contains(text, pw.Phrase) {
			sum += pw.Weight
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return clamp01(sum / float64(n))
}

func maxMatchWeight(text string, table []PhraseWeight) float64 {
	best := 0.0
	for _, pw := range table {
		if strings.Contains(text, pw.Phrase) && pw.Weight > best {
			best = pw.Weight
		}
	}
	return clamp01(best)
}

func vagueScore(text string, table []PhraseWeight) float64 {
	const capOccurrences = 3
	sum := 0.0
	for _, pw := range table {
		count := strings.Count(text, pw.Phrase)
		if count == 0 {
			continue
		}
		if count > capOccurrences {
			count = capOccurrences
		}
		sum += float64(count) * pw.Weight
	}
	length := len([]rune(text))
	if length > 500 {
		length = 500
	}
	lengthFactor := 1.5 - float64(length)/500*0.5
	return clamp01(sum * lengthFactor)
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// computeTrend is only meaningful once 3 scores are in history; Δ is the
// newest score minus the oldest of the last three.
func computeTrend(history []float64) fovapi.Trend {
	if len(history) < 3 {
		return fovapi.TrendStable
	}
	last3 := history[len(history)-3:]
	delta := last3[2] - last3[0]
	switch {
	case delta > 0.15:
		return fovapi.TrendImproving
	case delta < -0.15:
		return fovapi.TrendDeclining
	default:
		return fovapi.TrendStable
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
