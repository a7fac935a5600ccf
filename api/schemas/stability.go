package schemas

import "time"

// -- Stability Schemas --

// StabilitySample is one snapshot of the environment signals the observer
// scores. Samples are derived, consumed once, and never persisted.
type StabilitySample struct {
	// PendingNetwork counts in-flight network requests.
	PendingNetwork int `json:"pending_network"`
	// DOMMutationRate is observed DOM mutations per second.
	DOMMutationRate float64 `json:"dom_mutation_rate"`
	// LayoutShiftCount counts discrete layout shifts since the last sample.
	LayoutShiftCount int `json:"layout_shift_count"`
	// LayoutShiftScore is a continuous cumulative-layout-shift value. When
	// non-zero it supersedes LayoutShiftCount in scoring.
	LayoutShiftScore float64 `json:"layout_shift_score"`
	// TimeSinceLastInteraction is the elapsed time since the last user
	// input was dispatched to the page.
	TimeSinceLastInteraction time.Duration `json:"time_since_last_interaction"`
}

// StabilityVerdict is the observer's conclusion for one sample.
type StabilityVerdict struct {
	Stable bool `json:"stable"`
	// Score is the scalar settledness measure in [0, 1]; 1.0 is fully
	// settled.
	Score          float64 `json:"score"`
	Recommendation string  `json:"recommendation"`
}
