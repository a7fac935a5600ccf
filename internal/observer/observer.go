// Package observer scores how settled the environment is. Interactions are
// gated on its verdict: the system prefers to wait slightly longer over
// acting on a page that is still changing under it.
package observer

import (
	"fmt"
	"time"

	"github.com/veritas-qa/veritas-core/api/schemas"
	"github.com/veritas-qa/veritas-core/internal/config"
)

// Penalty weights applied to the perfect score of 1.0.
const (
	// penaltyNetwork applies once when any request is in flight: network
	// activity dominates, since an in-flight response may rewrite the view.
	penaltyNetwork = 0.5
	// penaltyPerLayoutShift applies per discrete layout shift.
	penaltyPerLayoutShift = 0.1
	// penaltyCLSFactor scales a continuous cumulative-layout-shift value
	// when one is supplied instead of a count.
	penaltyCLSFactor = 5.0
	// penaltyPerMutation scales the DOM mutation rate.
	penaltyPerMutation = 0.05
	// penaltyRecentInteraction applies when the last user input is within
	// the recency window, covering in-flight animations.
	penaltyRecentInteraction = 0.2
)

// Observer converts a StabilitySample into a stable/unstable verdict. It is
// a pure function of its inputs: no hidden state, fully deterministic.
type Observer struct {
	threshold     float64
	recencyWindow time.Duration
}

// New constructs an Observer with the configured strictness.
func New(cfg config.ObserverConfig) *Observer {
	return &Observer{
		threshold:     cfg.StabilityThreshold,
		recencyWindow: cfg.InteractionRecencyWindow,
	}
}

// Observe scores one sample. A zero TimeSinceLastInteraction counts as an
// interaction that just happened.
func (o *Observer) Observe(sample schemas.StabilitySample) schemas.StabilityVerdict {
	score := 1.0
	recommendation := "proceed"

	if sample.PendingNetwork > 0 {
		score -= penaltyNetwork
		recommendation = fmt.Sprintf("wait: %d network request(s) in flight", sample.PendingNetwork)
	}

	if sample.LayoutShiftScore > 0 {
		score -= penaltyCLSFactor * sample.LayoutShiftScore
		if recommendation == "proceed" {
			recommendation = fmt.Sprintf("wait: layout still shifting (CLS %.3f)", sample.LayoutShiftScore)
		}
	} else if sample.LayoutShiftCount > 0 {
		score -= penaltyPerLayoutShift * float64(sample.LayoutShiftCount)
		if recommendation == "proceed" {
			recommendation = fmt.Sprintf("wait: %d layout shift(s) observed", sample.LayoutShiftCount)
		}
	}

	if sample.DOMMutationRate > 0 {
		score -= penaltyPerMutation * sample.DOMMutationRate
		if recommendation == "proceed" {
			recommendation = fmt.Sprintf("wait: DOM mutating at %.1f/s", sample.DOMMutationRate)
		}
	}

	if sample.TimeSinceLastInteraction < o.recencyWindow {
		score -= penaltyRecentInteraction
		if recommendation == "proceed" {
			recommendation = "wait: recent interaction still settling"
		}
	}

	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}

	stable := score >= o.threshold
	if stable {
		recommendation = "proceed"
	}

	return schemas.StabilityVerdict{
		Stable:         stable,
		Score:          score,
		Recommendation: recommendation,
	}
}
