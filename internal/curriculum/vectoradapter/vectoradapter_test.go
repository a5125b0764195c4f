package vectoradapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fovtutor/internal/fov/fovapi"
)

type stubMetadataPort struct{}

func (stubMetadataPort) TopicMetadata(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicMetadata, error) {
	return fovapi.TopicMetadata{}, nil
}
func (stubMetadataPort) Glossary(ctx context.Context, topic fovapi.TopicRef, query string) ([]fovapi.GlossaryTerm, error) {
	return nil, nil
}
func (stubMetadataPort) Misconceptions(ctx context.Context, topic fovapi.TopicRef) ([]fovapi.MisconceptionTrigger, error) {
	return nil, nil
}
func (stubMetadataPort) Outline(ctx context.Context) (string, error) { return "", nil }
func (stubMetadataPort) Position(ctx context.Context, topic fovapi.TopicRef) (fovapi.Position, error) {
	return fovapi.Position{}, nil
}
func (stubMetadataPort) PreviousTopic(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicRef, bool, error) {
	return fovapi.TopicRef{}, false, nil
}
func (stubMetadataPort) NextTopic(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicRef, bool, error) {
	return fovapi.TopicRef{}, false, nil
}
func (stubMetadataPort) TopicAt(ctx context.Context, index int) (fovapi.TopicRef, bool, error) {
	return fovapi.TopicRef{}, false, nil
}

type stubEmbedder struct{ called int }

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.called++
	return [][]float32{{0.1, 0.2}}, nil
}

func TestNew_RequiresCollection(t *testing.T) {
	_, err := New("localhost:6334", "", &stubEmbedder{}, stubMetadataPort{})
	require.Error(t, err)
}

func TestNew_ParsesDSNAndConstructsClient(t *testing.T) {
	adapter, err := New("http://localhost:6334", "fovtutor-curriculum", &stubEmbedder{}, stubMetadataPort{})
	require.NoError(t, err)
	require.NotNil(t, adapter)
	assert.Equal(t, "fovtutor-curriculum", adapter.collection)
}

func TestGenerateContextForQuery_EmptyQuery_ReturnsInvalidInputWithoutEmbedding(t *testing.T) {
	embedder := &stubEmbedder{}
	adapter, err := New("http://localhost:6334", "fovtutor-curriculum", embedder, stubMetadataPort{})
	require.NoError(t, err)

	_, _, err = adapter.GenerateContextForQuery(context.Background(), "   ", fovapi.TopicRef{ID: "t1"}, 500)
	assert.ErrorIs(t, err, fovapi.ErrInvalidInput)
	assert.Equal(t, 0, embedder.called)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, clampScore(-1))
	assert.Equal(t, 1.0, clampScore(1.5))
	assert.Equal(t, 0.5, clampScore(0.5))
}
