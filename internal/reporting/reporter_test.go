package reporting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

func sampleTrace() *schemas.ExecutionTrace {
	return &schemas.ExecutionTrace{
		GoalID:      "f3b9ad21-0000-4000-8000-000000000001",
		Goal:        "Proceed to checkout",
		TargetState: "Checkout",
		Steps: []schemas.ExecutionStep{
			{
				ID:          "step-1",
				Action:      "Click a product card",
				Target:      "Product",
				Observation: "primary candidate at (120,80) with confidence 0.94",
				Status:      schemas.StepCompleted,
				Duration:    120 * time.Millisecond,
			},
			{
				ID:          "step-2",
				Action:      "Add the item to the cart",
				Target:      "Cart",
				Observation: "HEAL_FAILED: locate failed and no prior resolution",
				Status:      schemas.StepFailed,
				Duration:    80 * time.Millisecond,
			},
		},
		Success:       false,
		StartedAt:     time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC),
		TotalDuration: 200 * time.Millisecond,
		AuditTrail:    []string{"goal accepted", "halting after failed step"},
	}
}

func TestJSONReporterRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	r, err := New("json", path)
	require.NoError(t, err)

	require.NoError(t, r.Write(sampleTrace()))
	require.NoError(t, r.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded schemas.ExecutionTrace
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "Proceed to checkout", decoded.Goal)
	assert.Len(t, decoded.Steps, 2)
	assert.False(t, decoded.Success)
}

func TestTextReporterRendersStepsAndAudit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.txt")
	r, err := New("text", path)
	require.NoError(t, err)

	require.NoError(t, r.Write(sampleTrace()))
	require.NoError(t, r.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)

	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "Click a product card")
	assert.Contains(t, out, "halting after failed step")
	assert.Contains(t, out, "Checkout")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New("sarif", filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")
}
