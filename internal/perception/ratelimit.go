package perception

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/time/rate"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

// RateLimitedBackend wraps another backend with a token-bucket limiter.
// Perception calls are the only long-running operation in the core, and a
// real model endpoint usually has a hard ceiling; the limiter blocks until a
// slot frees up or the context ends.
type RateLimitedBackend struct {
	inner   Backend
	limiter *rate.Limiter
}

// NewRateLimited wraps inner so at most callsPerSecond Detect invocations
// reach it. callsPerSecond <= 0 returns inner unchanged.
func NewRateLimited(inner Backend, callsPerSecond float64) Backend {
	if callsPerSecond <= 0 {
		return inner
	}
	burst := int(callsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedBackend{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(callsPerSecond), burst),
	}
}

// Detect implements Backend.
func (r *RateLimitedBackend) Detect(ctx context.Context, img image.Image, intent string) ([]schemas.Candidate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", schemas.ErrBackendUnavailable, err)
	}
	return r.inner.Detect(ctx, img, intent)
}
