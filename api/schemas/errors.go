package schemas

import "errors"

// Sentinel errors shared across the core. Callers classify failures with
// errors.Is rather than string matching.
var (
	// ErrDecode reports malformed or undecodable input (image bytes,
	// embeddings). Not retried; the caller must resupply valid input.
	ErrDecode = errors.New("decode error")

	// ErrDimensionMismatch reports an embedding whose length is not
	// EmbeddingDim. Fatal to the call that supplied it.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnreachable reports that no path exists in the world model from
	// the start state to the requested target. Fatal to that goal.
	ErrUnreachable = errors.New("target state unreachable")

	// ErrUnstable reports an observer veto. Retried locally with backoff
	// before being escalated to a failed step.
	ErrUnstable = errors.New("environment unstable")

	// ErrBackendUnavailable reports a perception backend infrastructure
	// failure, as distinct from a legitimate "nothing matched" result.
	ErrBackendUnavailable = errors.New("perception backend unavailable")
)

// ErrorCode is a structured error identifier carried on command responses
// and step observations. Using a dedicated type keeps free-form strings out
// of positions tests assert on.
type ErrorCode string

const (
	ErrCodeDecodeFailure       ErrorCode = "DECODE_FAILURE"
	ErrCodeDimensionMismatch   ErrorCode = "DIMENSION_MISMATCH"
	ErrCodeTargetUnreachable   ErrorCode = "TARGET_UNREACHABLE"
	ErrCodeEnvironmentUnstable ErrorCode = "ENVIRONMENT_UNSTABLE"
	ErrCodeBackendUnavailable  ErrorCode = "BACKEND_UNAVAILABLE"
	ErrCodeElementNotFound     ErrorCode = "ELEMENT_NOT_FOUND"
	ErrCodeHealFailed          ErrorCode = "HEAL_FAILED"
	ErrCodeUnknownCommand      ErrorCode = "UNKNOWN_COMMAND"
)

// CodeForError maps a sentinel error to its wire-level code.
func CodeForError(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrDecode):
		return ErrCodeDecodeFailure
	case errors.Is(err, ErrDimensionMismatch):
		return ErrCodeDimensionMismatch
	case errors.Is(err, ErrUnreachable):
		return ErrCodeTargetUnreachable
	case errors.Is(err, ErrUnstable):
		return ErrCodeEnvironmentUnstable
	case errors.Is(err, ErrBackendUnavailable):
		return ErrCodeBackendUnavailable
	default:
		return ""
	}
}
