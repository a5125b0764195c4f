// Package coordinator implements the Session Coordinator: the per-turn
// façade a host calls into instead of touching the Manager, Monitor, or
// Handler directly (spec.md §4.6). It owns no buffer state itself — all
// mutation happens through context.Manager — but it is the only piece that
// knows how the other four components compose into a single turn.
package coordinator

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"fovtutor/internal/fov/confidence"
	fovcontext "fovtutor/internal/fov/context"
	"fovtutor/internal/fov/expansion"
	"fovtutor/internal/fov/fovapi"
	"fovtutor/internal/observability"
)

// Coordinator is the FOV core's only public surface; buffer, monitor, and
// handler internals are not exposed beyond it (spec.md §6).
type Coordinator struct {
	mu sync.Mutex

	manager *fovcontext.Manager
	monitor *confidence.Monitor
	handler *expansion.Handler // nil is a supported configuration

	enabled      bool
	currentTopic fovapi.TopicRef
	curriculum   fovapi.CurriculumPort // nil when no Expansion Handler is wired

	tracer trace.Tracer
}

// Option configures a Coordinator during construction.
type Option func(*Coordinator)

// WithExpansionHandler attaches a Handler, enabling expand_context and
// set_current_topic's curriculum lookups. Without one, expand_context
// returns an empty result and no error, and set_current_topic only updates
// what it already knows.
func WithExpansionHandler(h *expansion.Handler, curriculum fovapi.CurriculumPort) Option {
	return func(c *Coordinator) {
		c.handler = h
		c.curriculum = curriculum
	}
}

// WithMonitor overrides the default Monitor (e.g. to supply WithWeights or
// WithPhraseTable options ahead of time).
func WithMonitor(m *confidence.Monitor) Option {
	return func(c *Coordinator) { c.monitor = m }
}

// WithTracer enables OpenTelemetry spans around build_foveated_messages,
// analyze_response_confidence, and expand_context. Without this option the
// Coordinator uses the global OpenTelemetry provider's "fov/coordinator"
// tracer, which records spans only once a host has installed a provider
// (e.g. via observability.InitOTel).
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) { c.tracer = tracer }
}

// New creates an enabled Coordinator wrapping manager.
func New(manager *fovcontext.Manager, opts ...Option) *Coordinator {
	c := &Coordinator{
		manager: manager,
		monitor: confidence.New(),
		enabled: true,
		tracer:  otel.Tracer("fov/coordinator"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetEnabled toggles foveation. When disabled, BuildFoveatedMessages returns
// history verbatim (spec.md §4.6).
func (c *Coordinator) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// UpdateModelConfig forwards to the Manager.
func (c *Coordinator) UpdateModelConfig(modelID string) {
	c.manager.UpdateModelConfig(modelID)
}

// BuildFoveatedMessages assembles a ready-to-send message sequence: a single
// system message holding the flattened buffer state, followed by the last
// turn_count*2 non-system history entries in order. When disabled, it
// returns history verbatim, untouched (spec.md §4.6).
func (c *Coordinator) BuildFoveatedMessages(ctx context.Context, history []fovapi.Turn, bargeIn string) []fovapi.Message {
	c.mu.Lock()
	enabled := c.enabled
	c.mu.Unlock()

	if !enabled {
		return turnsToMessages(history)
	}

	ctx, end := c.startSpan(ctx, "fov.build_foveated_messages")
	defer end(nil)

	assembled := c.manager.BuildContext(history, bargeIn)

	tail := turnsToMessages(nonSystemTurns(history))
	keep := assembled.Budget.TurnCount * 2
	if keep < len(tail) {
		tail = tail[len(tail)-keep:]
	}

	messages := make([]fovapi.Message, 0, len(tail)+1)
	messages = append(messages, fovapi.Message{Role: fovapi.RoleSystem, Content: flattenAssembled(assembled)})
	messages = append(messages, tail...)
	return messages
}

// flattenAssembled reproduces context.Manager.ToSystemMessage's block
// ordering from an already-built Assembled value, so BuildFoveatedMessages
// doesn't force a second BuildContext call just to get the flattened text.
func flattenAssembled(a fovapi.Assembled) string {
	blocks := make([]string, 0, 5)
	if a.BaseSystemPrompt != "" {
		blocks = append(blocks, a.BaseSystemPrompt)
	}
	if a.Semantic != "" {
		blocks = append(blocks, "## CURRICULUM OVERVIEW\n"+a.Semantic)
	}
	if a.Episodic != "" {
		blocks = append(blocks, "## SESSION HISTORY\n"+a.Episodic)
	}
	if a.Working != "" {
		blocks = append(blocks, "## CURRENT TOPIC CONTEXT\n"+a.Working)
	}
	if a.Immediate != "" {
		blocks = append(blocks, "## IMMEDIATE CONTEXT\n"+a.Immediate)
	}
	out := ""
	for i, b := range blocks {
		if i > 0 {
			out += "\n\n"
		}
		out += b
	}
	return out
}

func turnsToMessages(history []fovapi.Turn) []fovapi.Message {
	messages := make([]fovapi.Message, 0, len(history))
	for _, t := range history {
		messages = append(messages, fovapi.Message{Role: t.Role, Content: t.Content})
	}
	return messages
}

// nonSystemTurns filters out RoleSystem entries so the tail BuildFoveatedMessages
// appends after its own system message never includes another one (spec.md §4.6).
func nonSystemTurns(history []fovapi.Turn) []fovapi.Turn {
	out := make([]fovapi.Turn, 0, len(history))
	for _, t := range history {
		if t.Role == fovapi.RoleSystem {
			continue
		}
		out = append(out, t)
	}
	return out
}

// AnalyzeResponseConfidence delegates to the Monitor and returns both the
// raw record and the derived recommendation.
func (c *Coordinator) AnalyzeResponseConfidence(ctx context.Context, text string) (fovapi.ConfidenceRecord, fovapi.Recommendation) {
	_, end := c.startSpan(ctx, "fov.analyze_response_confidence")
	defer end(nil)

	rec := c.monitor.AnalyzeResponse(text)
	reco := c.monitor.Recommend(rec)
	return rec, reco
}

// ExpandContext delegates to the Expansion Handler if configured. A nil
// handler is a supported configuration (spec.md §7 MissingCollaborator):
// ExpandContext returns an empty result and no error.
func (c *Coordinator) ExpandContext(ctx context.Context, req fovapi.Request) (fovapi.Result, error) {
	if c.handler == nil {
		// MissingCollaborator: degrade to an empty result rather than an error.
		observability.LoggerWithTrace(ctx).Warn().Str("scope", string(req.Scope)).Msg("expand_context_no_handler")
		return fovapi.Result{}, nil
	}

	ctx, end := c.startSpan(ctx, "fov.expand_context", attribute.String("scope", string(req.Scope)))
	var err error
	defer func() { end(err) }()

	result, err := c.handler.Execute(ctx, req)
	if err != nil {
		return fovapi.Result{}, err
	}
	return result, nil
}

// SetCurrentTopic changes the active topic: it asks the Curriculum port for
// position, outline, glossary, and misconception triggers, then updates the
// working and semantic buffers. Without a Curriculum port, it only records
// the new topic identity so later ExpandContext calls scope correctly.
func (c *Coordinator) SetCurrentTopic(ctx context.Context, topic fovapi.TopicRef) error {
	c.mu.Lock()
	c.currentTopic = topic
	c.mu.Unlock()

	if c.handler != nil {
		c.handler.SetCurrentTopic(topic)
	}
	if c.curriculum == nil {
		return nil
	}

	meta, err := c.curriculum.TopicMetadata(ctx, topic)
	if err != nil {
		// CurriculumLookupFailure: leave buffers as they were.
		return err
	}
	glossary, err := c.curriculum.Glossary(ctx, topic, "")
	if err != nil {
		glossary = nil
	}
	misconceptions, err := c.curriculum.Misconceptions(ctx, topic)
	if err != nil {
		misconceptions = nil
	}
	position, err := c.curriculum.Position(ctx, topic)
	if err != nil {
		position = fovapi.Position{}
	}
	outline, err := c.curriculum.Outline(ctx)
	if err != nil {
		outline = ""
	}

	c.manager.UpdateWorkingBuffer(meta.Title, meta.Outline, meta.Objectives, glossary, misconceptions)
	c.manager.UpdateSemanticBuffer(outline, position, nil)
	return nil
}

// SetCurrentSegment forwards to the Manager.
func (c *Coordinator) SetCurrentSegment(segment *fovapi.Segment) { c.manager.SetCurrentSegment(segment) }

// SetAdjacentSegments forwards to the Manager.
func (c *Coordinator) SetAdjacentSegments(segments []fovapi.Segment) {
	c.manager.SetAdjacentSegments(segments)
}

// RecordUserQuestion forwards to the Manager.
func (c *Coordinator) RecordUserQuestion(text string, answered bool) {
	c.manager.RecordUserQuestion(text, answered)
}

// RecordTopicCompletion forwards to the Manager.
func (c *Coordinator) RecordTopicCompletion(summary fovapi.TopicSummary) {
	c.manager.RecordTopicCompletion(summary)
}

// RecordClarificationRequest forwards to the Manager.
func (c *Coordinator) RecordClarificationRequest() { c.manager.RecordClarificationRequest() }

// RecordRepetitionRequest forwards to the Manager.
func (c *Coordinator) RecordRepetitionRequest() { c.manager.RecordRepetitionRequest() }

// HandleBargeIn is the specialized barge-in assembly path: it updates the
// current segment to the interrupted one, then builds foveated messages
// with the barge-in utterance set. The Manager guarantees the barge-in line
// appears first in the immediate section (spec.md §4.6).
func (c *Coordinator) HandleBargeIn(ctx context.Context, history []fovapi.Turn, interrupted fovapi.Segment, utterance string) []fovapi.Message {
	c.manager.SetCurrentSegment(&interrupted)
	return c.BuildFoveatedMessages(ctx, history, utterance)
}

// Reset reinitializes the Manager's buffers and the Monitor's trend history
// and clears transient references (current topic), for a new session sharing
// the same Coordinator. The Monitor's history is cleared in place so any
// WithWeights/WithPhraseTable configuration supplied via WithMonitor survives
// the reset (spec.md §4.6).
func (c *Coordinator) Reset() {
	c.manager.Reset()
	c.monitor.Reset()

	c.mu.Lock()
	c.currentTopic = fovapi.TopicRef{}
	c.mu.Unlock()

	if c.handler != nil {
		c.handler.SetCurrentTopic(fovapi.TopicRef{})
	}
}

func (c *Coordinator) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if c.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := c.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}
