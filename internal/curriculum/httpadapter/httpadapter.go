// Package httpadapter implements fovapi.CurriculumPort over a plain REST
// curriculum API, for hosts that expose curriculum data neither through
// Postgres nor MCP. Authenticates with OAuth2 client-credentials
// (golang.org/x/oauth2/clientcredentials), grounded on the teacher's
// internal/auth OAuth2 usage of the same golang.org/x/oauth2 package,
// adapted from its authorization-code flow to the machine-to-machine
// client-credentials grant this server-to-server adapter needs.
package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"fovtutor/internal/config"
	"fovtutor/internal/fov/fovapi"
)

var _ fovapi.CurriculumPort = (*Adapter)(nil)

type Adapter struct {
	baseURL string
	client  *http.Client
}

// New returns an Adapter that authenticates every request with an OAuth2
// client-credentials token fetched against cfg.TokenURL, auto-refreshed by
// the oauth2 package's own transport.
func New(cfg config.HTTPCurriculumConfig) *Adapter {
	ccCfg := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	return &Adapter{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  ccCfg.Client(context.Background()),
	}
}

func (a *Adapter) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := a.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpadapter: build request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("httpadapter: request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("httpadapter: %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *Adapter) postJSON(ctx context.Context, path string, body any, out any) error {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return fmt.Errorf("httpadapter: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("httpadapter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("httpadapter: request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("httpadapter: %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *Adapter) TopicMetadata(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicMetadata, error) {
	var meta fovapi.TopicMetadata
	err := a.getJSON(ctx, "/topics/"+url.PathEscape(topic.ID), nil, &meta)
	return meta, err
}

func (a *Adapter) Glossary(ctx context.Context, topic fovapi.TopicRef, query string) ([]fovapi.GlossaryTerm, error) {
	var terms []fovapi.GlossaryTerm
	q := url.Values{}
	if query != "" {
		q.Set("query", query)
	}
	err := a.getJSON(ctx, "/topics/"+url.PathEscape(topic.ID)+"/glossary", q, &terms)
	return terms, err
}

func (a *Adapter) Misconceptions(ctx context.Context, topic fovapi.TopicRef) ([]fovapi.MisconceptionTrigger, error) {
	var out []fovapi.MisconceptionTrigger
	err := a.getJSON(ctx, "/topics/"+url.PathEscape(topic.ID)+"/misconceptions", nil, &out)
	return out, err
}

func (a *Adapter) Outline(ctx context.Context) (string, error) {
	var result struct {
		Outline string `json:"outline"`
	}
	err := a.getJSON(ctx, "/outline", nil, &result)
	return result.Outline, err
}

func (a *Adapter) Position(ctx context.Context, topic fovapi.TopicRef) (fovapi.Position, error) {
	var pos fovapi.Position
	err := a.getJSON(ctx, "/topics/"+url.PathEscape(topic.ID)+"/position", nil, &pos)
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
	q := url.Values{"direction": {direction}}
	err := a.getJSON(ctx, "/topics/"+url.PathEscape(topic.ID)+"/neighbor", q, &result)
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
	q := url.Values{"index": {strconv.Itoa(index)}}
	err := a.getJSON(ctx, "/topics/at", q, &result)
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
	err := a.postJSON(ctx, "/context", map[string]any{
		"query":      query,
		"topic_id":   topic.ID,
		"max_tokens": maxTokens,
	}, &result)
	return result.Content, result.Relevance, err
}
