// Package perception defines the contract a vision backend must satisfy and
// ships a deterministic simulated implementation. The core never depends on
// a concrete model; anything that can turn a frame and an intent into
// candidate regions can be plugged in here.
package perception

import (
	"context"
	"image"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

// Backend locates candidate regions for a natural-language intent within a
// decoded frame.
//
// A nil error with zero candidates means "nothing matched" and is a
// legitimate negative result. An error return signals an infrastructure
// failure (model unavailable, inference crashed) and must never be
// interpreted as "element absent"; implementations should wrap
// schemas.ErrBackendUnavailable for that case.
//
// Detect may be slow. Callers must not invoke it while holding locks.
type Backend interface {
	Detect(ctx context.Context, img image.Image, intent string) ([]schemas.Candidate, error)
}
