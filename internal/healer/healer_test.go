package healer

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/api/schemas"
	"github.com/veritas-qa/veritas-core/internal/config"
)

type fixedBackend struct {
	candidates []schemas.Candidate
	err        error
}

func (f *fixedBackend) Detect(_ context.Context, _ image.Image, _ string) ([]schemas.Candidate, error) {
	return f.candidates, f.err
}

// unitEmbedding returns a full-length embedding pointing along axis.
func unitEmbedding(axis int) schemas.Embedding {
	e := make(schemas.Embedding, schemas.EmbeddingDim)
	e[axis] = 1
	return e
}

func viewBase64(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestHealer(backend *fixedBackend) *Healer {
	return New(backend, config.NewDefault().Healer, zap.NewNop())
}

func TestHealRejectsWrongEmbeddingDimension(t *testing.T) {
	h := newTestHealer(&fixedBackend{})

	result, err := h.Heal(context.Background(), schemas.HealRequest{
		FailedSelector:     "#btn",
		LastKnownEmbedding: schemas.Embedding{0.1, 0.2, 0.3},
		ImageBase64:        viewBase64(t),
	})
	assert.ErrorIs(t, err, schemas.ErrDimensionMismatch)
	assert.False(t, result.Healed)
}

func TestHealRejectsUndecodableView(t *testing.T) {
	h := newTestHealer(&fixedBackend{})

	_, err := h.Heal(context.Background(), schemas.HealRequest{
		FailedSelector:     "#btn",
		LastKnownEmbedding: unitEmbedding(0),
		ImageBase64:        "not-an-image",
	})
	assert.ErrorIs(t, err, schemas.ErrDecode)
}

func TestHealVisualOnlyMatch(t *testing.T) {
	box := schemas.BoundingBox{X: 40, Y: 80, Width: 120, Height: 44}
	backend := &fixedBackend{candidates: []schemas.Candidate{
		{Box: box, Embedding: unitEmbedding(0)}, // identical appearance, no label
	}}
	h := newTestHealer(backend)

	result, err := h.Heal(context.Background(), schemas.HealRequest{
		FailedSelector:     "#btn-buy",
		LastKnownEmbedding: unitEmbedding(0),
		ImageBase64:        viewBase64(t),
	})
	require.NoError(t, err)
	assert.True(t, result.Healed)
	assert.InDelta(t, 1.0, result.SimilarityScore, 1e-9)
	assert.Equal(t, box, result.Location)
	assert.Equal(t, "veritas-region://40,80,120x44", result.NewSelector)
}

func TestHealCombinedScoreWithLabel(t *testing.T) {
	backend := &fixedBackend{candidates: []schemas.Candidate{
		{
			Box:       schemas.BoundingBox{X: 10, Y: 10, Width: 80, Height: 30},
			Label:     "submit-order",
			Embedding: unitEmbedding(0),
		},
	}}
	h := newTestHealer(backend)

	result, err := h.Heal(context.Background(), schemas.HealRequest{
		FailedSelector:     "submit-order-old",
		LastKnownEmbedding: unitEmbedding(0),
		ImageBase64:        viewBase64(t),
	})
	require.NoError(t, err)
	require.True(t, result.Healed)
	// visual = 1.0, structural = 1 - 4/16 = 0.75; combined = 0.6 + 0.4*0.75.
	assert.InDelta(t, 0.9, result.SimilarityScore, 1e-9)
	assert.Equal(t, "veritas-semantic://submit-order", result.NewSelector)
}

func TestHealScansEveryCandidate(t *testing.T) {
	// The best match is deliberately last; an early-exit scan would settle
	// for the weaker first candidate.
	weaker := schemas.Candidate{Box: schemas.BoundingBox{X: 1, Y: 1, Width: 10, Height: 10}, Embedding: unitEmbedding(1)}
	best := schemas.Candidate{Box: schemas.BoundingBox{X: 9, Y: 9, Width: 10, Height: 10}, Embedding: unitEmbedding(0)}
	backend := &fixedBackend{candidates: []schemas.Candidate{weaker, best}}
	h := newTestHealer(backend)

	result, err := h.Heal(context.Background(), schemas.HealRequest{
		FailedSelector:     "#btn",
		LastKnownEmbedding: unitEmbedding(0),
		ImageBase64:        viewBase64(t),
	})
	require.NoError(t, err)
	require.True(t, result.Healed)
	assert.Equal(t, best.Box, result.Location)
}

func TestHealBelowThresholdReportsBestScore(t *testing.T) {
	// Orthogonal embedding: visual similarity 0, well below threshold.
	backend := &fixedBackend{candidates: []schemas.Candidate{
		{Box: schemas.BoundingBox{Width: 10, Height: 10}, Embedding: unitEmbedding(1)},
	}}
	h := newTestHealer(backend)

	result, err := h.Heal(context.Background(), schemas.HealRequest{
		FailedSelector:     "#btn",
		LastKnownEmbedding: unitEmbedding(0),
		ImageBase64:        viewBase64(t),
	})
	require.NoError(t, err)
	assert.False(t, result.Healed)
	assert.InDelta(t, 0.0, result.SimilarityScore, 1e-9)
	assert.Empty(t, result.NewSelector)
}

func TestHealMonotonicity(t *testing.T) {
	// Over a range of candidate embeddings, Healed must imply a score
	// strictly above the threshold.
	h := newTestHealer(&fixedBackend{})
	for axis := 0; axis < 8; axis++ {
		mixed := unitEmbedding(0)
		mixed[axis] = 1
		backend := &fixedBackend{candidates: []schemas.Candidate{
			{Box: schemas.BoundingBox{Width: 10, Height: 10}, Embedding: mixed},
		}}
		result, err := New(backend, config.NewDefault().Healer, zap.NewNop()).Heal(context.Background(), schemas.HealRequest{
			FailedSelector:     "#btn",
			LastKnownEmbedding: unitEmbedding(0),
			ImageBase64:        viewBase64(t),
		})
		require.NoError(t, err)
		if result.Healed {
			assert.Greater(t, result.SimilarityScore, h.Threshold(),
				"healed=true must imply score strictly above threshold")
		}
	}
}

func TestHealNoCandidates(t *testing.T) {
	h := newTestHealer(&fixedBackend{candidates: nil})

	result, err := h.Heal(context.Background(), schemas.HealRequest{
		FailedSelector:     "#gone",
		LastKnownEmbedding: unitEmbedding(0),
		ImageBase64:        viewBase64(t),
	})
	require.NoError(t, err)
	assert.False(t, result.Healed)
	assert.InDelta(t, 0.0, result.SimilarityScore, 1e-9)
}

func TestHealBackendFailurePropagates(t *testing.T) {
	h := newTestHealer(&fixedBackend{err: schemas.ErrBackendUnavailable})

	_, err := h.Heal(context.Background(), schemas.HealRequest{
		FailedSelector:     "#btn",
		LastKnownEmbedding: unitEmbedding(0),
		ImageBase64:        viewBase64(t),
	})
	assert.ErrorIs(t, err, schemas.ErrBackendUnavailable)
}

func TestHealUsesDOMSnapshotLabels(t *testing.T) {
	backend := &fixedBackend{candidates: []schemas.Candidate{
		{Box: schemas.BoundingBox{X: 5, Y: 5, Width: 50, Height: 20}, Embedding: unitEmbedding(0)},
	}}
	h := newTestHealer(backend)

	result, err := h.Heal(context.Background(), schemas.HealRequest{
		FailedSelector:     "checkout-btn",
		LastKnownEmbedding: unitEmbedding(0),
		ImageBase64:        viewBase64(t),
		DOMSnapshot:        `<html><body><button data-testid="checkout-button">Pay now</button></body></html>`,
	})
	require.NoError(t, err)
	require.True(t, result.Healed)
	assert.Equal(t, "veritas-semantic://checkout-button", result.NewSelector)
}
