package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/internal/config"
)

func TestNewWiresDefaults(t *testing.T) {
	cfg := config.NewDefault()
	c, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)

	assert.NotNil(t, c.Backend)
	assert.NotNil(t, c.NeuralMap)
	assert.NotNil(t, c.Locator)
	assert.NotNil(t, c.Healer)
	assert.NotNil(t, c.Observer)
	assert.NotNil(t, c.Model)
	assert.NotNil(t, c.Agent)
	assert.Nil(t, c.Session())
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Perception.Backend = "quantum"

	_, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantum")
}

func TestNewRejectsUnknownClassifier(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Agent.Classifier = "astrology"

	_, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "astrology")
}

func TestShutdownIsIdempotent(t *testing.T) {
	cfg := config.NewDefault()
	c, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	c.Shutdown()
	c.Shutdown()
}
