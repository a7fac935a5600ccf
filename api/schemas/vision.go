package schemas

import "time"

// EmbeddingDim is the canonical length of every semantic embedding produced
// or consumed by the core. It matches the hidden size of ViT-Base/BERT style
// encoders so a real model can slot in without a schema change.
const EmbeddingDim = 768

// Embedding is a fixed-length semantic feature vector for a UI element.
type Embedding []float32

// Candidate is a single region proposed by the perception backend for an
// intent. Candidates are produced only by a perception backend; nothing else
// in the core hand-constructs them.
type Candidate struct {
	Box        BoundingBox `json:"box"`
	Label      string      `json:"label,omitempty"`
	Confidence float64     `json:"confidence"`
	Embedding  Embedding   `json:"embedding"`
}

// LocateRequest asks the locator to resolve a natural-language intent
// against an encoded screen capture.
type LocateRequest struct {
	// ImageBase64 is the captured frame as base64-encoded PNG or JPEG bytes.
	ImageBase64 string `json:"image_base64"`
	// Intent names the desired target, e.g. "Find the Checkout button".
	// Intents are opaque cache keys; two distinct strings are never equal.
	Intent string `json:"intent"`
}

// LocateResult is the locator's answer for one intent.
//
// Found=false with an empty candidate list is a legitimate negative result,
// not an error.
type LocateResult struct {
	Found      bool        `json:"found"`
	Primary    *Candidate  `json:"primary,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
	Confidence float64     `json:"confidence"`
	Reasoning  string      `json:"reasoning"`
	FromCache  bool        `json:"from_cache"`
	AuditTrail []string    `json:"audit_trail,omitempty"`
}

// NeuralMapEntry is the last known resolution for an intent: where the
// element was, what it looked like in latent space, and when it was seen.
type NeuralMapEntry struct {
	Location  BoundingBox `json:"location"`
	Embedding Embedding   `json:"embedding"`
	LastSeen  time.Time   `json:"last_seen"`
}
