package agent

import (
	"context"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

// FrameSource supplies the current view as a base64-encoded image. The live
// implementation captures a browser screenshot; tests use a fixed frame.
type FrameSource interface {
	Capture(ctx context.Context) (string, error)
}

// SignalSource supplies the environment signals the observer scores before
// every action.
type SignalSource interface {
	Sample(ctx context.Context) (schemas.StabilitySample, error)
}

// Actuator performs a resolved action against the environment. The core
// ships a no-op actuator; driving real input devices belongs to an external
// layer.
type Actuator interface {
	Perform(ctx context.Context, action string, target schemas.Candidate) error
}

// StaticFrameSource returns the same frame on every capture.
type StaticFrameSource struct {
	Frame string
}

// Capture implements FrameSource.
func (s StaticFrameSource) Capture(context.Context) (string, error) {
	return s.Frame, nil
}

// StaticSignalSource returns the same sample on every read.
type StaticSignalSource struct {
	StabilitySample schemas.StabilitySample
}

// Sample implements SignalSource.
func (s StaticSignalSource) Sample(context.Context) (schemas.StabilitySample, error) {
	return s.StabilitySample, nil
}

// NoopActuator accepts every action without side effects.
type NoopActuator struct{}

// Perform implements Actuator.
func (NoopActuator) Perform(context.Context, string, schemas.Candidate) error {
	return nil
}
