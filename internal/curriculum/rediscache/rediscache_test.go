package rediscache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fovtutor/internal/config"
	"fovtutor/internal/fov/fovapi"
)

type fakePort struct {
	fovapi.CurriculumPort
	outline      string
	outlineCalls int
	content      string
	relevance    float64
	contentCalls int
}

func (f *fakePort) Outline(ctx context.Context) (string, error) {
	f.outlineCalls++
	return f.outline, nil
}

func (f *fakePort) GenerateContextForQuery(ctx context.Context, query string, topic fovapi.TopicRef, maxTokens int) (string, float64, error) {
	f.contentCalls++
	return f.content, f.relevance, nil
}

func TestWrap_Disabled_ReturnsBaseUnchanged(t *testing.T) {
	base := &fakePort{outline: "unit 1\nunit 2"}
	port, err := Wrap(base, config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.Same(t, fovapi.CurriculumPort(base), port)
}

func TestEncodeDecodeContext_RoundTrips(t *testing.T) {
	encoded := encodeContext("some retrieved text", 0.625)
	content, relevance, ok := decodeContext(encoded)
	require.True(t, ok)
	assert.Equal(t, "some retrieved text", content)
	assert.InDelta(t, 0.625, relevance, 0.0001)
}

func TestDecodeContext_MalformedValue_NotOK(t *testing.T) {
	_, _, ok := decodeContext("no separator here")
	assert.False(t, ok)
}
