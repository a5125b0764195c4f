package mcpadapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fovtutor/internal/config"
)

func TestConnect_RequiresServerCommand(t *testing.T) {
	_, err := Connect(context.Background(), config.MCPConfig{})
	require.Error(t, err)
}

func TestWrap_NilSession_DoesNotPanic(t *testing.T) {
	a := Wrap(nil)
	assert.NotNil(t, a)
}
