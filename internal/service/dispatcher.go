package service

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Dispatcher routes command envelopes to the core operations. It is the
// single entry point external transports call into.
type Dispatcher struct {
	components *Components
	logger     *zap.Logger
}

// NewDispatcher builds the command router over wired components.
func NewDispatcher(c *Components, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		components: c,
		logger:     logger.Named("dispatcher"),
	}
}

// Dispatch executes one command envelope. The returned envelope always has a
// definite status; transport-level errors do not exist at this layer.
func (d *Dispatcher) Dispatch(ctx context.Context, req schemas.CommandRequest) schemas.CommandResponse {
	d.logger.Debug("dispatching command", zap.String("command", string(req.Command)))

	switch req.Command {
	case schemas.CommandLocate:
		return d.handleLocate(ctx, req.Payload)
	case schemas.CommandHeal:
		return d.handleHeal(ctx, req.Payload)
	case schemas.CommandObserve:
		return d.handleObserve(req.Payload)
	case schemas.CommandGoal:
		return d.handleGoal(ctx, req.Payload)
	default:
		return errorResponse(schemas.ErrCodeUnknownCommand,
			fmt.Errorf("unknown command %q", req.Command))
	}
}

func (d *Dispatcher) handleLocate(ctx context.Context, payload []byte) schemas.CommandResponse {
	var req schemas.LocateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errorResponse(schemas.ErrCodeDecodeFailure,
			fmt.Errorf("malformed locate payload: %w", err))
	}

	result, err := d.components.Locator.Analyze(ctx, req)
	if err != nil {
		return errorResponse(schemas.CodeForError(err), err)
	}
	return successResponse(result)
}

func (d *Dispatcher) handleHeal(ctx context.Context, payload []byte) schemas.CommandResponse {
	var req schemas.HealRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errorResponse(schemas.ErrCodeDecodeFailure,
			fmt.Errorf("malformed heal payload: %w", err))
	}

	result, err := d.components.Healer.Heal(ctx, req)
	if err != nil {
		return errorResponse(schemas.CodeForError(err), err)
	}
	return successResponse(result)
}

func (d *Dispatcher) handleObserve(payload []byte) schemas.CommandResponse {
	var sample schemas.StabilitySample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return errorResponse(schemas.ErrCodeDecodeFailure,
			fmt.Errorf("malformed observe payload: %w", err))
	}
	return successResponse(d.components.Observer.Observe(sample))
}

// goalPayload is the envelope body of a goal command.
type goalPayload struct {
	Goal string `json:"goal"`
}

func (d *Dispatcher) handleGoal(ctx context.Context, payload []byte) schemas.CommandResponse {
	var req goalPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return errorResponse(schemas.ErrCodeDecodeFailure,
			fmt.Errorf("malformed goal payload: %w", err))
	}
	if req.Goal == "" {
		return errorResponse(schemas.ErrCodeDecodeFailure,
			fmt.Errorf("goal payload requires a non-empty goal"))
	}

	// The trace itself reports success or failure; the envelope is only an
	// error when the command could not run at all.
	trace := d.components.Agent.Execute(ctx, req.Goal)
	return successResponse(trace)
}

func successResponse(data interface{}) schemas.CommandResponse {
	raw, err := json.Marshal(data)
	if err != nil {
		return errorResponse("", fmt.Errorf("failed to encode response: %w", err))
	}
	return schemas.CommandResponse{
		Status: schemas.StatusSuccess,
		Data:   raw,
	}
}

func errorResponse(code schemas.ErrorCode, err error) schemas.CommandResponse {
	return schemas.CommandResponse{
		Status: schemas.StatusError,
		Code:   code,
		Error:  err.Error(),
	}
}
