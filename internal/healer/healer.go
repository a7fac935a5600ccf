// Package healer recovers broken element references. When a previously valid
// selector stops matching, the healer re-scans the current view and looks for
// the candidate most similar to the element's last known appearance.
package healer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/api/schemas"
	"github.com/veritas-qa/veritas-core/internal/config"
	"github.com/veritas-qa/veritas-core/internal/perception"
)

// Healer performs semantic recovery of element references.
//
// The acceptance threshold is fixed at construction; changing it means
// constructing a new Healer. The comparison against it is strict (>).
type Healer struct {
	backend          perception.Backend
	threshold        float64
	visualWeight     float64
	structuralWeight float64
	logger           *zap.Logger
}

// New constructs a Healer. Weights follow cfg; when a candidate carries no
// structural label the visual term alone decides with weight 1.0.
func New(backend perception.Backend, cfg config.HealerConfig, logger *zap.Logger) *Healer {
	return &Healer{
		backend:          backend,
		threshold:        cfg.Threshold,
		visualWeight:     cfg.VisualWeight,
		structuralWeight: cfg.StructuralWeight,
		logger:           logger.Named("healer"),
	}
}

// Threshold reports the healer's fixed acceptance threshold.
func (h *Healer) Threshold() float64 {
	return h.threshold
}

// Heal attempts to find a replacement for req.FailedSelector in the current
// view. Every visible candidate is scored; the scan never exits early so a
// later higher-scoring match is never missed.
//
// The returned error is non-nil only for invalid input or backend
// infrastructure failure. "Nothing similar enough" is a Healed=false result
// with the best score reported for diagnostics, not an error.
func (h *Healer) Heal(ctx context.Context, req schemas.HealRequest) (schemas.HealResult, error) {
	if len(req.LastKnownEmbedding) != schemas.EmbeddingDim {
		err := fmt.Errorf("%w: got %d, want %d",
			schemas.ErrDimensionMismatch, len(req.LastKnownEmbedding), schemas.EmbeddingDim)
		return schemas.HealResult{
			Reason: fmt.Sprintf("invalid embedding dimension (expected %d)", schemas.EmbeddingDim),
		}, err
	}

	audit := []string{fmt.Sprintf("heal requested for selector %q", req.FailedSelector)}

	img, err := perception.DecodeBase64Image(req.ImageBase64)
	if err != nil {
		return schemas.HealResult{
			Reason:     "failed to decode current view",
			AuditTrail: audit,
		}, err
	}

	// Detection runs independently of the broken reference: an empty intent
	// asks the backend for an unbiased scan of everything visible.
	candidates, err := h.backend.Detect(ctx, img, "")
	if err != nil {
		return schemas.HealResult{
			Reason:     "perception backend failure during re-scan",
			AuditTrail: append(audit, fmt.Sprintf("backend error: %v", err)),
		}, err
	}
	audit = append(audit, fmt.Sprintf("re-scan produced %d candidate(s)", len(candidates)))

	if len(candidates) == 0 {
		return schemas.HealResult{
			Healed:     false,
			Reason:     "no candidates visible in current view",
			AuditTrail: audit,
		}, nil
	}

	// Structural evidence from the DOM snapshot, when supplied, backs up
	// candidates the backend could not label.
	domLabels := ExtractLabels(req.DOMSnapshot)
	if len(domLabels) > 0 {
		audit = append(audit, fmt.Sprintf("dom snapshot contributed %d structural label(s)", len(domLabels)))
	}

	bestScore := -1.0
	var best schemas.Candidate
	var bestLabel string

	for _, c := range candidates {
		label := c.Label
		if label == "" {
			label = closestLabel(req.FailedSelector, domLabels)
		}

		visual := CosineSimilarity(req.LastKnownEmbedding, c.Embedding)
		var score float64
		if label != "" {
			score = h.visualWeight*visual + h.structuralWeight*StringSimilarity(req.FailedSelector, label)
		} else {
			score = visual
		}

		if score > bestScore {
			bestScore = score
			best = c
			bestLabel = label
		}
	}

	if bestScore > h.threshold {
		selector := derivedSelector(best, bestLabel)
		h.logger.Info("selector healed",
			zap.String("failed_selector", req.FailedSelector),
			zap.String("new_selector", selector),
			zap.Float64("score", bestScore))
		return schemas.HealResult{
			Healed:          true,
			NewSelector:     selector,
			Location:        best.Box,
			SimilarityScore: bestScore,
			Reason: fmt.Sprintf("found element with similarity %.2f to missing %q",
				bestScore, req.FailedSelector),
			AuditTrail: append(audit, fmt.Sprintf("accepted candidate at (%d,%d) score %.4f",
				best.Box.X, best.Box.Y, bestScore)),
		}, nil
	}

	reported := bestScore
	if reported < 0 {
		reported = 0
	}
	h.logger.Debug("heal rejected",
		zap.String("failed_selector", req.FailedSelector),
		zap.Float64("best_score", reported),
		zap.Float64("threshold", h.threshold))
	return schemas.HealResult{
		Healed:          false,
		SimilarityScore: reported,
		Reason: fmt.Sprintf("no element found with similarity > %.2f; best match: %.2f",
			h.threshold, reported),
		AuditTrail: append(audit, "no candidate cleared the threshold"),
	}, nil
}

// closestLabel picks the structural label most similar to the failed
// selector out of the DOM pool. Empty when there is no pool.
func closestLabel(failedSelector string, labels []string) string {
	best := ""
	bestSim := -1.0
	for _, l := range labels {
		if sim := StringSimilarity(failedSelector, l); sim > bestSim {
			bestSim = sim
			best = l
		}
	}
	return best
}

// derivedSelector builds the replacement reference for a healed candidate:
// a semantic selector when a label exists, a region selector otherwise.
func derivedSelector(c schemas.Candidate, label string) string {
	if label != "" {
		return fmt.Sprintf("veritas-semantic://%s", label)
	}
	return fmt.Sprintf("veritas-region://%d,%d,%dx%d", c.Box.X, c.Box.Y, c.Box.Width, c.Box.Height)
}
