package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpClient(t *testing.T) {
	c := NewNoOpClient()
	assert.False(t, c.Enabled())
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.NotNil(t, Tracer())
}

func TestClientConnectTwice(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c := NewClient("127.0.0.1:4318")
	require.NoError(t, c.Connect(ctx))
	assert.Error(t, c.Connect(ctx))
	require.NoError(t, c.Close(ctx))
	require.NoError(t, c.Close(ctx))
}
