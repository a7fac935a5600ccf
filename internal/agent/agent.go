// Package agent sequences multi-step goals. A goal is classified to a
// target state, planned as the shortest action path through the world model,
// and executed step by step under the control loop the whole core is built
// around: locate, verify stability, act, heal on failure.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/api/schemas"
	"github.com/veritas-qa/veritas-core/internal/config"
	"github.com/veritas-qa/veritas-core/internal/healer"
	"github.com/veritas-qa/veritas-core/internal/locator"
	"github.com/veritas-qa/veritas-core/internal/observer"
	"github.com/veritas-qa/veritas-core/internal/worldmodel"
)

// Agent executes goals against the environment. One Agent may run many
// goals; each Execute call owns its trace exclusively.
type Agent struct {
	locator    *locator.Locator
	healer     *healer.Healer
	observer   *observer.Observer
	model      *worldmodel.Model
	classifier Classifier
	frames     FrameSource
	signals    SignalSource
	actuator   Actuator
	cfg        config.AgentConfig
	logger     *zap.Logger

	// lastEmbeddings remembers the most recent successful resolution per
	// intent so a later failure of the same intent can be healed.
	memoMu         sync.Mutex
	lastEmbeddings map[string]schemas.Embedding
}

// New wires an Agent. A nil actuator defaults to NoopActuator.
func New(
	loc *locator.Locator,
	heal *healer.Healer,
	obs *observer.Observer,
	model *worldmodel.Model,
	classifier Classifier,
	frames FrameSource,
	signals SignalSource,
	actuator Actuator,
	cfg config.AgentConfig,
	logger *zap.Logger,
) *Agent {
	if actuator == nil {
		actuator = NoopActuator{}
	}
	return &Agent{
		locator:        loc,
		healer:         heal,
		observer:       obs,
		model:          model,
		classifier:     classifier,
		frames:         frames,
		signals:        signals,
		actuator:       actuator,
		cfg:            cfg,
		logger:         logger.Named("agent"),
		lastEmbeddings: make(map[string]schemas.Embedding),
	}
}

// Execute runs one goal to completion or first failure and returns the full
// execution trace. Every attempted action appears as a step; Success is the
// logical AND of all step statuses. Execution is fail-fast: after a failed
// step no further actions run, since the world model's picture of the
// application may no longer be right.
func (a *Agent) Execute(ctx context.Context, goal string) schemas.ExecutionTrace {
	start := time.Now()
	trace := schemas.ExecutionTrace{
		GoalID:    uuid.NewString(),
		Goal:      goal,
		StartedAt: start,
		Success:   true,
		AuditTrail: []string{
			fmt.Sprintf("goal accepted: %q", goal),
		},
	}
	target, err := a.classifier.Classify(ctx, goal)
	if err != nil {
		a.logger.Warn("goal classification failed", zap.String("goal", goal), zap.Error(err))
		a.appendStep(&trace, schemas.ExecutionStep{
			Action:      "classify goal",
			Observation: fmt.Sprintf("%s: %v", schemas.ErrCodeTargetUnreachable, err),
			Reasoning:   "a goal that maps to no known state cannot be planned",
			Status:      schemas.StepFailed,
		})
		trace.TotalDuration = time.Since(start)
		return trace
	}
	trace.TargetState = target
	trace.AuditTrail = append(trace.AuditTrail, fmt.Sprintf("goal classified to target state %q", target))

	path, err := a.model.FindPath(a.cfg.StartState, target, a.cfg.MaxExpansions)
	if err != nil {
		a.logger.Warn("planning failed",
			zap.String("start", a.cfg.StartState),
			zap.String("target", target),
			zap.Error(err))
		a.appendStep(&trace, schemas.ExecutionStep{
			Action:      fmt.Sprintf("plan path to %s", target),
			Observation: fmt.Sprintf("%s: %v", schemas.ErrCodeTargetUnreachable, err),
			Reasoning:   "breadth-first search found no route in the world model",
			Status:      schemas.StepFailed,
		})
		trace.TotalDuration = time.Since(start)
		return trace
	}
	trace.AuditTrail = append(trace.AuditTrail,
		fmt.Sprintf("planned %d step(s) from %q to %q", len(path), a.cfg.StartState, target))

	for _, planned := range path {
		step := a.executeStep(ctx, planned)
		a.appendStep(&trace, step)
		if step.Status != schemas.StepCompleted {
			trace.AuditTrail = append(trace.AuditTrail, "halting after failed step")
			break
		}
	}

	trace.TotalDuration = time.Since(start)
	a.logger.Info("goal execution finished",
		zap.String("goal_id", trace.GoalID),
		zap.Bool("success", trace.Success),
		zap.Int("steps", len(trace.Steps)))
	return trace
}

// appendStep stamps the step identity and appends to the trace, keeping
// Success consistent with the step statuses.
func (a *Agent) appendStep(trace *schemas.ExecutionTrace, step schemas.ExecutionStep) {
	if step.ID == "" {
		step.ID = uuid.NewString()
	}
	trace.Steps = append(trace.Steps, step)
	if step.Status != schemas.StepCompleted {
		trace.Success = false
	}
}

// executeStep runs one planned action through the full control loop.
func (a *Agent) executeStep(ctx context.Context, planned worldmodel.Step) schemas.ExecutionStep {
	begin := time.Now()
	step := schemas.ExecutionStep{
		Action:    planned.Action,
		Target:    planned.To,
		Reasoning: fmt.Sprintf("transition %s -> %s", planned.From, planned.To),
		Status:    schemas.StepPending,
	}

	// The observer is always consulted and never bypassed.
	if err := a.awaitStability(ctx); err != nil {
		step.Status = schemas.StepFailed
		step.Observation = fmt.Sprintf("%s: %v", schemas.ErrCodeEnvironmentUnstable, err)
		step.Duration = time.Since(begin)
		return step
	}

	frame, err := a.frames.Capture(ctx)
	if err != nil {
		step.Status = schemas.StepFailed
		step.Observation = fmt.Sprintf("frame capture failed: %v", err)
		step.Duration = time.Since(begin)
		return step
	}

	intent := planned.Action
	result, err := a.locator.Analyze(ctx, schemas.LocateRequest{ImageBase64: frame, Intent: intent})

	var target schemas.Candidate
	switch {
	case err == nil && result.Found:
		target = *result.Primary
		a.memoMu.Lock()
		a.lastEmbeddings[intent] = target.Embedding
		a.memoMu.Unlock()
		step.Observation = result.Reasoning
	default:
		healed, healErr := a.tryHeal(ctx, intent, frame)
		if healErr != nil {
			step.Status = schemas.StepFailed
			step.Observation = fmt.Sprintf("%s: locate failed and %v", schemas.ErrCodeHealFailed, healErr)
			step.Duration = time.Since(begin)
			return step
		}
		target = schemas.Candidate{Box: healed.Location, Confidence: healed.SimilarityScore}
		step.Observation = fmt.Sprintf("reference healed to %s (similarity %.2f)",
			healed.NewSelector, healed.SimilarityScore)
	}

	if err := a.actuator.Perform(ctx, planned.Action, target); err != nil {
		step.Status = schemas.StepFailed
		step.Observation = fmt.Sprintf("actuation failed: %v", err)
		step.Duration = time.Since(begin)
		return step
	}

	step.Status = schemas.StepCompleted
	step.Duration = time.Since(begin)
	return step
}

// awaitStability consults the observer, retrying with exponential backoff
// until the verdict is stable or the retry budget runs out.
func (a *Agent) awaitStability(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = a.cfg.StabilityBackoffInitial

	var lastVerdict schemas.StabilityVerdict
	attempt := func() error {
		sample, err := a.signals.Sample(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("signal source failed: %w", err))
		}
		lastVerdict = a.observer.Observe(sample)
		if !lastVerdict.Stable {
			return fmt.Errorf("%w: score %.2f (%s)",
				schemas.ErrUnstable, lastVerdict.Score, lastVerdict.Recommendation)
		}
		return nil
	}

	err := backoff.Retry(attempt,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(a.cfg.StabilityRetries)), ctx))
	if err != nil {
		a.logger.Debug("stability gate exhausted",
			zap.Float64("score", lastVerdict.Score),
			zap.String("recommendation", lastVerdict.Recommendation))
	}
	return err
}

// tryHeal attempts semantic recovery for an intent whose resolution failed.
// Without a previously observed embedding there is nothing to match against
// and healing is impossible.
func (a *Agent) tryHeal(ctx context.Context, intent, frame string) (schemas.HealResult, error) {
	a.memoMu.Lock()
	last, ok := a.lastEmbeddings[intent]
	a.memoMu.Unlock()
	if !ok {
		return schemas.HealResult{}, fmt.Errorf("no prior resolution of %q to heal from", intent)
	}

	result, err := a.healer.Heal(ctx, schemas.HealRequest{
		FailedSelector:     intent,
		LastKnownEmbedding: last,
		ImageBase64:        frame,
	})
	if err != nil {
		return schemas.HealResult{}, err
	}
	if !result.Healed {
		return schemas.HealResult{}, fmt.Errorf("healing failed: %s", result.Reason)
	}
	return result, nil
}
