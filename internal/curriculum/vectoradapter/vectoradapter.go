// Package vectoradapter implements GenerateContextForQuery via a Qdrant
// similarity search, grounded on the teacher's
// internal/persistence/databases/qdrant_vector.go (gRPC client construction,
// DSN parsing) and internal/rag/embedder.Embedder's EmbedBatch shape for the
// query-embedding step.
package vectoradapter

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"fovtutor/internal/fov/fovapi"
	"fovtutor/internal/tokenest"
)

// payloadTopicField scopes a similarity search to a single topic's chunks.
const payloadTopicField = "topic_id"

// payloadTextField holds the chunk's source text for a hit.
const payloadTextField = "text"

// Embedder turns text into a vector, mirroring rag/embedder.Embedder's
// EmbedBatch trimmed to the single-query call vectoradapter needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// MetadataPort is every fovapi.CurriculumPort method except
// GenerateContextForQuery: the part Adapter delegates to a base port
// (pgadapter, mcpadapter, httpadapter) rather than implementing itself.
type MetadataPort interface {
	TopicMetadata(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicMetadata, error)
	Glossary(ctx context.Context, topic fovapi.TopicRef, query string) ([]fovapi.GlossaryTerm, error)
	Misconceptions(ctx context.Context, topic fovapi.TopicRef) ([]fovapi.MisconceptionTrigger, error)
	Outline(ctx context.Context) (string, error)
	Position(ctx context.Context, topic fovapi.TopicRef) (fovapi.Position, error)
	PreviousTopic(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicRef, bool, error)
	NextTopic(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicRef, bool, error)
	TopicAt(ctx context.Context, index int) (fovapi.TopicRef, bool, error)
}

var _ fovapi.CurriculumPort = (*Adapter)(nil)

// Adapter composes a MetadataPort with a Qdrant-backed
// GenerateContextForQuery, yielding a complete fovapi.CurriculumPort.
type Adapter struct {
	MetadataPort
	client     *qdrant.Client
	collection string
	embedder   Embedder
}

// New dials Qdrant at dsn (its gRPC port, default 6334) and returns an
// Adapter combining it with base for every other CurriculumPort method. An
// optional "?api_key=..." query parameter on dsn authenticates the client.
func New(dsn string, collection string, embedder Embedder, base MetadataPort) (*Adapter, error) {
	if collection == "" {
		return nil, fmt.Errorf("vectoradapter: collection name is required")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("vectoradapter: parse dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("vectoradapter: invalid port in dsn: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vectoradapter: create qdrant client: %w", err)
	}
	return &Adapter{MetadataPort: base, client: client, collection: collection, embedder: embedder}, nil
}

func (a *Adapter) Close() error {
	return a.client.Close()
}

func (a *Adapter) GenerateContextForQuery(ctx context.Context, query string, topic fovapi.TopicRef, maxTokens int) (string, float64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", 0, fovapi.ErrInvalidInput
	}

	vectors, err := a.embedder.EmbedBatch(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		return "", 0, fmt.Errorf("vectoradapter: embed query: %w", err)
	}

	limit := uint64(8)
	hits, err := a.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: a.collection,
		Query:          qdrant.NewQueryDense(vectors[0]),
		Limit:          &limit,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadTopicField, topic.ID)},
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return "", 0, fmt.Errorf("vectoradapter: similarity search: %w", err)
	}
	if len(hits) == 0 {
		return "", 0, nil
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	var sb strings.Builder
	var best float64
	used := 0
	for i, hit := range hits {
		text := ""
		if hit.Payload != nil {
			text = hit.Payload[payloadTextField].GetStringValue()
		}
		if text == "" {
			continue
		}
		cost := tokenest.Estimate(text)
		if used+cost > maxTokens {
			if used == 0 {
				// Keep at least the head of the single best chunk, clipped
				// to maxTokens: this port enforces the cap, and the
				// Expansion Handler does not re-trim.
				runes := []rune(text)
				if n := tokenest.CharsForBudget(maxTokens); len(runes) > n {
					runes = runes[:n]
				}
				sb.WriteString(string(runes))
				used += cost
				best = float64(hit.Score)
			}
			break
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
		used += cost
		if i == 0 {
			best = float64(hit.Score)
		}
	}
	return sb.String(), clampScore(best), nil
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
