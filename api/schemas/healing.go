package schemas

// -- Healing Schemas --

// HealRequest asks the healer to recover a broken element reference by
// similarity search over the currently visible candidates.
type HealRequest struct {
	// FailedSelector identifies the broken reference. It is used for
	// human-readable reporting and for the structural similarity term when
	// candidates carry labels; it never gates the visual score.
	FailedSelector string `json:"failed_selector"`
	// LastKnownEmbedding is the element's last observed semantic embedding.
	// Its length must equal EmbeddingDim.
	LastKnownEmbedding Embedding `json:"last_known_embedding"`
	// ImageBase64 is the current view as base64-encoded PNG or JPEG bytes.
	ImageBase64 string `json:"image_base64"`
	// DOMSnapshot optionally carries the current document HTML. When present
	// it is mined for structural labels to strengthen candidate scoring.
	DOMSnapshot string `json:"dom_snapshot,omitempty"`
}

// HealResult reports the outcome of one healing attempt.
//
// Invariant: Healed implies SimilarityScore strictly exceeds the healer's
// threshold.
type HealResult struct {
	Healed          bool        `json:"healed"`
	NewSelector     string      `json:"new_selector,omitempty"`
	Location        BoundingBox `json:"location"`
	SimilarityScore float64     `json:"similarity_score"`
	Reason          string      `json:"reason"`
	AuditTrail      []string    `json:"audit_trail,omitempty"`
}
