package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		name string
		goal string
		want string
	}{
		{"checkout", "Proceed to checkout", "Checkout"},
		{"purchase verb", "Buy the blue widget", "Checkout"},
		{"confirmation outranks checkout", "Confirm the purchase", "Confirmation"},
		{"cart", "Show me my cart", "Cart"},
		{"product", "Open the first product", "Product"},
		{"login", "Sign in to my account", "Dashboard"},
		{"home", "Go back to the home page", "Home"},
		{"case insensitive", "CHECKOUT NOW", "Checkout"},
	}

	c := NewKeywordClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tt.goal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordClassifierRejectsUnknownGoal(t *testing.T) {
	c := NewKeywordClassifier()
	_, err := c.Classify(context.Background(), "Defragment the mainframe")
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrUnreachable)
}
