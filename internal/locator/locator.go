// Package locator resolves natural-language intents to screen locations,
// orchestrating the perception backend and the neural map. Repeated
// interactions with the same logical element never re-pay perception cost.
package locator

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/veritas-qa/veritas-core/api/schemas"
	"github.com/veritas-qa/veritas-core/internal/config"
	"github.com/veritas-qa/veritas-core/internal/neuralmap"
	"github.com/veritas-qa/veritas-core/internal/perception"
)

// cacheHitReasoning is the fixed reasoning string for map-served results;
// tests and downstream tooling key off it.
const cacheHitReasoning = "retrieved from memory"

// Locator answers "where is the element this intent describes" for a given
// frame. It is safe for concurrent use; concurrent Analyze calls for the
// same uncached intent are collapsed into a single backend invocation.
type Locator struct {
	backend perception.Backend
	nmap    *neuralmap.Map
	cfg     config.LocatorConfig
	logger  *zap.Logger
	flight  singleflight.Group
}

// New constructs a Locator around the given backend and neural map.
func New(backend perception.Backend, nmap *neuralmap.Map, cfg config.LocatorConfig, logger *zap.Logger) *Locator {
	return &Locator{
		backend: backend,
		nmap:    nmap,
		cfg:     cfg,
		logger:  logger.Named("locator"),
	}
}

// Analyze resolves req.Intent against req.ImageBase64.
//
// The neural map is consulted first; a hit returns the cached location and
// embedding immediately with confidence pinned at the configured constant,
// without decoding the frame. On a miss the frame is decoded, the backend
// queried, and a sufficiently confident primary candidate written back to
// the map.
//
// Found=false with a nil error is a legitimate negative result. Errors are
// reserved for malformed input (schemas.ErrDecode) and backend
// infrastructure failures (schemas.ErrBackendUnavailable).
func (l *Locator) Analyze(ctx context.Context, req schemas.LocateRequest) (schemas.LocateResult, error) {
	audit := []string{fmt.Sprintf("locate requested for intent %q", req.Intent)}

	if entry, ok := l.nmap.Get(req.Intent); ok {
		l.logger.Debug("neural map hit", zap.String("intent", req.Intent))
		primary := schemas.Candidate{
			Box:        entry.Location,
			Confidence: l.cfg.CacheConfidence,
			Embedding:  entry.Embedding,
		}
		return schemas.LocateResult{
			Found:      true,
			Primary:    &primary,
			Candidates: []schemas.Candidate{primary},
			Confidence: l.cfg.CacheConfidence,
			Reasoning:  cacheHitReasoning,
			FromCache:  true,
			AuditTrail: append(audit, fmt.Sprintf("neural map hit, last seen %s", entry.LastSeen.Format("15:04:05.000"))),
		}, nil
	}

	img, err := perception.DecodeBase64Image(req.ImageBase64)
	if err != nil {
		l.logger.Warn("frame decode failed", zap.String("intent", req.Intent), zap.Error(err))
		return schemas.LocateResult{
			Found:      false,
			Reasoning:  "failed to decode frame",
			AuditTrail: append(audit, "frame decode failed"),
		}, err
	}

	candidates, err := l.detect(ctx, img, req.Intent)
	if err != nil {
		return schemas.LocateResult{
			Found:      false,
			Reasoning:  "perception backend failure",
			AuditTrail: append(audit, fmt.Sprintf("backend error: %v", err)),
		}, err
	}
	audit = append(audit, fmt.Sprintf("perception returned %d candidate(s)", len(candidates)))

	if len(candidates) == 0 {
		return schemas.LocateResult{
			Found:      false,
			Reasoning:  fmt.Sprintf("no region matched intent %q", req.Intent),
			AuditTrail: audit,
		}, nil
	}

	primary := selectPrimary(candidates)
	audit = append(audit, fmt.Sprintf("primary candidate at (%d,%d) confidence %.2f",
		primary.Box.X, primary.Box.Y, primary.Confidence))

	if primary.Confidence > l.cfg.WriteThreshold {
		l.nmap.Put(req.Intent, primary.Box, primary.Embedding)
		audit = append(audit, "neural map updated")
		l.logger.Debug("neural map updated",
			zap.String("intent", req.Intent),
			zap.Float64("confidence", primary.Confidence))
	}

	return schemas.LocateResult{
		Found:      true,
		Primary:    &primary,
		Candidates: candidates,
		Confidence: primary.Confidence,
		Reasoning: fmt.Sprintf("perception matched intent %q at (%d,%d) with confidence %.2f",
			req.Intent, primary.Box.X, primary.Box.Y, primary.Confidence),
		AuditTrail: audit,
	}, nil
}

// detect invokes the backend through a singleflight group keyed by intent so
// a stampede of identical lookups costs one inference. The neural map lock
// is never held here.
func (l *Locator) detect(ctx context.Context, img image.Image, intent string) ([]schemas.Candidate, error) {
	v, err, shared := l.flight.Do(intent, func() (interface{}, error) {
		return l.backend.Detect(ctx, img, intent)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.logger.Debug("perception call shared across concurrent lookups", zap.String("intent", intent))
	}
	return v.([]schemas.Candidate), nil
}

// selectPrimary picks the highest-confidence candidate, breaking ties by
// larger bounding-box area: between equally confident regions the bigger one
// is more likely a primary action target than an icon.
func selectPrimary(candidates []schemas.Candidate) schemas.Candidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence ||
			(c.Confidence == best.Confidence && c.Box.Area() > best.Box.Area()) {
			best = c
		}
	}
	return best
}
