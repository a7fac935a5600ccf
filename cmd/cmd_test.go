package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/api/schemas"
	"github.com/veritas-qa/veritas-core/internal/config"
)

func testConfig() *config.Config {
	cfg := config.NewDefault()
	cfg.Agent.StabilityRetries = 1
	cfg.Agent.StabilityBackoffInitial = time.Millisecond
	return cfg
}

// writeScreenshot drops a PNG with a high-contrast region into dir and
// returns its path.
func writeScreenshot(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}
	for y := 100; y < 200; y++ {
		for x := 100; x < 200; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.RGBA{A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}

	path := filepath.Join(dir, "frame.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestRunLocate(t *testing.T) {
	imagePath := writeScreenshot(t, t.TempDir())
	var out bytes.Buffer

	err := runLocate(context.Background(), testConfig(), zap.NewNop(), &out, imagePath, "Find the submit button")
	require.NoError(t, err)

	var resp schemas.CommandResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, schemas.StatusSuccess, resp.Status)

	var result schemas.LocateResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.True(t, result.Found)
}

func TestRunLocateMissingImage(t *testing.T) {
	var out bytes.Buffer
	err := runLocate(context.Background(), testConfig(), zap.NewNop(), &out, "/does/not/exist.png", "Find anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read image file")
}

func TestRunHealRejectsBadEmbedding(t *testing.T) {
	dir := t.TempDir()
	imagePath := writeScreenshot(t, dir)

	embeddingPath := filepath.Join(dir, "embedding.json")
	require.NoError(t, os.WriteFile(embeddingPath, []byte("[0.1, 0.2, 0.3]"), 0o644))

	var out bytes.Buffer
	err := runHeal(context.Background(), testConfig(), zap.NewNop(), &out, imagePath, "#gone", embeddingPath, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(schemas.ErrCodeDimensionMismatch))

	// The error envelope is still printed for machine consumers.
	var resp schemas.CommandResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, schemas.StatusError, resp.Status)
}

func TestRunHealFindsReplacement(t *testing.T) {
	dir := t.TempDir()
	imagePath := writeScreenshot(t, dir)

	// A full-size embedding captured from an earlier resolution of the same
	// region keeps visual similarity high.
	var locateOut bytes.Buffer
	require.NoError(t, runLocate(context.Background(), testConfig(), zap.NewNop(), &locateOut, imagePath, "Find the button"))

	var locateResp schemas.CommandResponse
	require.NoError(t, json.Unmarshal(locateOut.Bytes(), &locateResp))
	var located schemas.LocateResult
	require.NoError(t, json.Unmarshal(locateResp.Data, &located))
	require.True(t, located.Found)

	embedding, err := json.Marshal(located.Primary.Embedding)
	require.NoError(t, err)
	embeddingPath := filepath.Join(dir, "embedding.json")
	require.NoError(t, os.WriteFile(embeddingPath, embedding, 0o644))

	var out bytes.Buffer
	require.NoError(t, runHeal(context.Background(), testConfig(), zap.NewNop(), &out, imagePath, "#checkout", embeddingPath, ""))

	var resp schemas.CommandResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Equal(t, schemas.StatusSuccess, resp.Status)

	var healed schemas.HealResult
	require.NoError(t, json.Unmarshal(resp.Data, &healed))
	assert.True(t, healed.Healed)
	assert.NotEmpty(t, healed.NewSelector)
}

func TestRunObserve(t *testing.T) {
	dir := t.TempDir()
	samplePath := filepath.Join(dir, "sample.json")
	sample := schemas.StabilitySample{
		PendingNetwork:           1,
		TimeSinceLastInteraction: time.Second,
	}
	raw, err := json.Marshal(sample)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(samplePath, raw, 0o644))

	var out bytes.Buffer
	require.NoError(t, runObserve(context.Background(), testConfig(), zap.NewNop(), &out, samplePath))

	var resp schemas.CommandResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Equal(t, schemas.StatusSuccess, resp.Status)

	var verdict schemas.StabilityVerdict
	require.NoError(t, json.Unmarshal(resp.Data, &verdict))
	assert.False(t, verdict.Stable)
}

func TestRunGoalWithoutBrowser(t *testing.T) {
	var out bytes.Buffer
	err := runGoal(context.Background(), testConfig(), zap.NewNop(), &out, "Proceed to checkout", "", "", "text")
	require.NoError(t, err)

	var resp schemas.CommandResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Equal(t, schemas.StatusSuccess, resp.Status)

	var trace schemas.ExecutionTrace
	require.NoError(t, json.Unmarshal(resp.Data, &trace))
	assert.Equal(t, "Checkout", trace.TargetState)
	// Static sources carry no frame, so the trace reports failed steps
	// rather than pretending to act.
	assert.False(t, trace.Success)
	assert.NotEmpty(t, trace.Steps)
}

func TestRunGoalWritesReport(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "trace.txt")
	var out bytes.Buffer

	err := runGoal(context.Background(), testConfig(), zap.NewNop(), &out, "Proceed to checkout", "", reportPath, "text")
	require.NoError(t, err)

	report, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), "Proceed to checkout")
	assert.Contains(t, string(report), "Checkout")
}

func TestEncodeImageFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x01, 0x02, 0x03}, 0o644))

	encoded, err := encodeImageFile(path)
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, decoded)
}
