package schemas

import "encoding/json"

// -- Command Surface Schemas --

// CommandTag keys each core operation on the command surface. The transport
// that carries these envelopes is owned by an external layer; the core only
// defines the request/response shapes.
type CommandTag string

const (
	CommandLocate  CommandTag = "locate"
	CommandHeal    CommandTag = "heal"
	CommandObserve CommandTag = "observe"
	CommandGoal    CommandTag = "goal"
)

// CommandRequest wraps one operation invocation. Payload carries the
// operation-specific request (LocateRequest, HealRequest, ...) verbatim.
type CommandRequest struct {
	Command CommandTag      `json:"command"`
	Payload json.RawMessage `json:"payload"`
}

// ResponseStatus is the coarse outcome of a command.
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusError   ResponseStatus = "error"
)

// CommandResponse is the uniform envelope every command returns.
type CommandResponse struct {
	Status ResponseStatus  `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Code   ErrorCode       `json:"code,omitempty"`
	Error  string          `json:"error,omitempty"`
}
