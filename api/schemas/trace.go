package schemas

import "time"

// -- Execution Trace Schemas --

// StepStatus tracks the lifecycle of a single agent step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// ExecutionStep records one attempted action, successful or not. Once
// appended to a trace a step is never modified.
type ExecutionStep struct {
	ID          string        `json:"id"`
	Action      string        `json:"action"`
	Target      string        `json:"target,omitempty"`
	Observation string        `json:"observation"`
	Reasoning   string        `json:"reasoning"`
	Duration    time.Duration `json:"duration"`
	Status      StepStatus    `json:"status"`
}

// ExecutionTrace is the append-only log of one goal execution. It is owned
// exclusively by the execution that produced it and handed to the caller
// verbatim for audit.
type ExecutionTrace struct {
	GoalID        string          `json:"goal_id"`
	Goal          string          `json:"goal"`
	TargetState   string          `json:"target_state"`
	Steps         []ExecutionStep `json:"steps"`
	Success       bool            `json:"success"`
	StartedAt     time.Time       `json:"started_at"`
	TotalDuration time.Duration   `json:"total_duration"`
	AuditTrail    []string        `json:"audit_trail,omitempty"`
}
