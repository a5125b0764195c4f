// Package openai adapts github.com/openai/openai-go/v2 to the llm.Provider
// interface, trimmed from the teacher's internal/llm/openai client down to
// the chat-completions non-streaming path the Summarizer port needs.
package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"fovtutor/internal/config"
	"fovtutor/internal/llm"
	"fovtutor/internal/observability"
)

type Client struct {
	sdk   sdk.Client
	model string
}

func New(cfg config.OpenAIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithHTTPClient(httpClient)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o"
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model}
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, model string) (llm.Message, error) {
	effectiveModel := firstNonEmpty(model, c.model)
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(effectiveModel),
		Messages: adaptMessages(msgs),
	}

	log := observability.LoggerWithTrace(ctx)
	start := time.Now()
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", effectiveModel).Dur("duration", dur).Msg("openai_chat_error")
		return llm.Message{}, err
	}
	log.Debug().Str("model", effectiveModel).Dur("duration", dur).Msg("openai_chat_ok")

	if len(comp.Choices) == 0 {
		return llm.Message{Role: "assistant"}, nil
	}
	return llm.Message{Role: "assistant", Content: comp.Choices[0].Message.Content}, nil
}

func adaptMessages(msgs []llm.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case "system":
			out = append(out, sdk.SystemMessage(content))
		case "assistant":
			out = append(out, sdk.AssistantMessage(content))
		default:
			out = append(out, sdk.UserMessage(content))
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
