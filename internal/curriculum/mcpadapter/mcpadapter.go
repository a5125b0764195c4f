// Package mcpadapter implements fovapi.CurriculumPort against a host
// curriculum MCP server, grounded on the teacher's internal/mcpclient's
// mcppkg.NewClient/session.CallTool pattern. Tools called: get_topic,
// get_glossary, get_misconceptions, get_outline, get_position,
// get_neighbor, get_topic_at, generate_context_for_query.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	mcppkg "github.com/modelcontextprotocol/go-sdk/mcp"

	"fovtutor/internal/config"
	"fovtutor/internal/fov/fovapi"
)

var _ fovapi.CurriculumPort = (*Adapter)(nil)

// Adapter holds a *mcppkg.ClientSession. A session passed to Wrap is not
// owned: the caller connects and closes it, matching §9's "delegate
// capability reference with non-owning semantics". An Adapter built by
// Connect owns the session it created, and Close closes it.
type Adapter struct {
	session *mcppkg.ClientSession
}

// Connect launches the configured curriculum MCP server over stdio and
// returns an Adapter wrapping the resulting session. Callers are
// responsible for calling Close when done with the adapter.
func Connect(ctx context.Context, cfg config.MCPConfig) (*Adapter, error) {
	if strings.TrimSpace(cfg.ServerCommand) == "" {
		return nil, fmt.Errorf("mcpadapter: server command required")
	}
	client := mcppkg.NewClient(&mcppkg.Implementation{Name: "fovtutor", Version: "dev"}, nil)
	cmd := exec.Command(cfg.ServerCommand, cfg.ServerArgs...)
	session, err := client.Connect(ctx, &mcppkg.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpadapter: connect: %w", err)
	}
	return &Adapter{session: session}, nil
}

// Wrap adapts an already-connected session, for hosts that manage MCP
// session lifecycle themselves (e.g. a shared mcpclient.Manager).
func Wrap(session *mcppkg.ClientSession) *Adapter {
	return &Adapter{session: session}
}

func (a *Adapter) Close() error {
	return a.session.Close()
}

func (a *Adapter) call(ctx context.Context, tool string, args map[string]any, out any) error {
	res, err := a.session.CallTool(ctx, &mcppkg.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return fmt.Errorf("mcpadapter: call %s: %w", tool, err)
	}
	if res.IsError {
		return fmt.Errorf("mcpadapter: %s returned an error result", tool)
	}
	if out == nil {
		return nil
	}
	if res.StructuredContent != nil {
		b, err := json.Marshal(res.StructuredContent)
		if err != nil {
			return fmt.Errorf("mcpadapter: marshal %s result: %w", tool, err)
		}
		return json.Unmarshal(b, out)
	}
	for _, c := range res.Content {
		if tc, ok := c.(*mcppkg.TextContent); ok {
			return json.Unmarshal([]byte(tc.Text), out)
		}
	}
	return fmt.Errorf("mcpadapter: %s returned no usable content", tool)
}

func (a *Adapter) TopicMetadata(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicMetadata, error) {
	var meta fovapi.TopicMetadata
	err := a.call(ctx, "get_topic", map[string]any{"topic_id": topic.ID}, &meta)
	return meta, err
}

func (a *Adapter) Glossary(ctx context.Context, topic fovapi.TopicRef, query string) ([]fovapi.GlossaryTerm, error) {
	var terms []fovapi.GlossaryTerm
	err := a.call(ctx, "get_glossary", map[string]any{"topic_id": topic.ID, "query": query}, &terms)
	return terms, err
}

func (a *Adapter) Misconceptions(ctx context.Context, topic fovapi.TopicRef) ([]fovapi.MisconceptionTrigger, error) {
	var out []fovapi.MisconceptionTrigger
	err := a.call(ctx, "get_misconceptions", map[string]any{"topic_id": topic.ID}, &out)
	return out, err
}

func (a *Adapter) Outline(ctx context.Context) (string, error) {
	var result struct {
		Outline string `json:"outline"`
	}
	err := a.call(ctx, "get_outline", map[string]any{}, &result)
	return result.Outline, err
}

func (a *Adapter) Position(ctx context.Context, topic fovapi.TopicRef) (fovapi.Position, error) {
	var pos fovapi.Position
	err := a.call(ctx, "get_position", map[string]any{"topic_id": topic.ID}, &pos)
	return pos, err
}

func (a *Adapter) PreviousTopic(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicRef, bool, error) {
	return a.neighbor(ctx, topic, "previous")
}

func (a *Adapter) NextTopic(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicRef, bool, error) {
	return a.neighbor(ctx, topic, "next")
}

func (a *Adapter) neighbor(ctx context.Context, topic fovapi.TopicRef, direction string) (fovapi.TopicRef, bool, error) {
	var result struct {
		ID string `json:"id"`
		OK bool   `json:"ok"`
	}
	err := a.call(ctx, "get_neighbor", map[string]any{"topic_id": topic.ID, "direction": direction}, &result)
	if err != nil {
		return fovapi.TopicRef{}, false, err
	}
	if !result.OK {
		return fovapi.TopicRef{}, false, nil
	}
	return fovapi.TopicRef{ID: result.ID}, true, nil
}

func (a *Adapter) TopicAt(ctx context.Context, index int) (fovapi.TopicRef, bool, error) {
	var result struct {
		ID string `json:"id"`
		OK bool   `json:"ok"`
	}
	err := a.call(ctx, "get_topic_at", map[string]any{"index": index}, &result)
	if err != nil {
		return fovapi.TopicRef{}, false, err
	}
	if !result.OK {
		return fovapi.TopicRef{}, false, nil
	}
	return fovapi.TopicRef{ID: result.ID}, true, nil
}

func (a *Adapter) GenerateContextForQuery(ctx context.Context, query string, topic fovapi.TopicRef, maxTokens int) (string, float64, error) {
	var result struct {
		Content   string  `json:"content"`
		Relevance float64 `json:"relevance"`
	}
	err := a.call(ctx, "generate_context_for_query", map[string]any{
		"query":      query,
		"topic_id":   topic.ID,
		"max_tokens": maxTokens,
	}, &result)
	return result.Content, result.Relevance, err
}
