// Package google adapts google.golang.org/genai to the llm.Provider
// interface, trimmed from the teacher's internal/llm/google client down to
// one text-only, non-streaming Chat call. System messages fold into a
// user-role content prefixed "[system]", matching the teacher's own
// workaround for a model family with no dedicated system role in this
// content API.
package google

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"fovtutor/internal/config"
	"fovtutor/internal/llm"
	"fovtutor/internal/observability"
)

type Client struct {
	client *genai.Client
	model  string
}

func New(cfg config.GoogleConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     strings.TrimSpace(cfg.APIKey),
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("init google client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, model string) (llm.Message, error) {
	effectiveModel := c.pickModel(model)
	contents := toContents(msgs)

	log := observability.LoggerWithTrace(ctx)
	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, effectiveModel, contents, nil)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", effectiveModel).Dur("duration", dur).Msg("google_chat_error")
		return llm.Message{}, err
	}
	log.Debug().Str("model", effectiveModel).Dur("duration", dur).Msg("google_chat_ok")

	return messageFromResponse(resp)
}

func (c *Client) pickModel(model string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	return c.model
}

func toContents(msgs []llm.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		role := genai.RoleUser
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case "assistant":
			role = genai.RoleModel
		case "system":
			text = "[system] " + text
		}
		contents = append(contents, genai.NewContentFromParts([]*genai.Part{{Text: text}}, role))
	}
	return contents
}

func messageFromResponse(resp *genai.GenerateContentResponse) (llm.Message, error) {
	if resp == nil {
		return llm.Message{}, fmt.Errorf("nil response from google provider")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return llm.Message{}, fmt.Errorf("request blocked by google: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return llm.Message{}, fmt.Errorf("no candidates in google response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return llm.Message{Role: "assistant"}, nil
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return llm.Message{Role: "assistant", Content: sb.String()}, nil
}
