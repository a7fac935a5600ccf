// Package service assembles the core's components from configuration and
// exposes them behind a uniform command surface. The transport that carries
// command envelopes is owned by callers; this package only builds and
// dispatches.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/veritas-qa/veritas-core/api/schemas"
	"github.com/veritas-qa/veritas-core/internal/agent"
	"github.com/veritas-qa/veritas-core/internal/browser"
	"github.com/veritas-qa/veritas-core/internal/config"
	"github.com/veritas-qa/veritas-core/internal/healer"
	"github.com/veritas-qa/veritas-core/internal/locator"
	"github.com/veritas-qa/veritas-core/internal/neuralmap"
	"github.com/veritas-qa/veritas-core/internal/observer"
	"github.com/veritas-qa/veritas-core/internal/perception"
	"github.com/veritas-qa/veritas-core/internal/worldmodel"
)

// Components holds the initialized core services. Build it through New; the
// zero value is not usable.
type Components struct {
	Backend   perception.Backend
	NeuralMap *neuralmap.Map
	Locator   *locator.Locator
	Healer    *healer.Healer
	Observer  *observer.Observer
	Model     *worldmodel.Model
	Agent     *agent.Agent

	session *browser.Session
	logger  *zap.Logger
}

// Option adjusts component construction before wiring completes.
type Option func(*builderState)

type builderState struct {
	frames      agent.FrameSource
	signals     agent.SignalSource
	actuator    agent.Actuator
	classifier  agent.Classifier
	liveSession bool
}

// WithFrameSource overrides where the agent captures frames from.
func WithFrameSource(fs agent.FrameSource) Option {
	return func(b *builderState) { b.frames = fs }
}

// WithSignalSource overrides where stability samples come from.
func WithSignalSource(ss agent.SignalSource) Option {
	return func(b *builderState) { b.signals = ss }
}

// WithActuator overrides how planned actions reach the environment.
func WithActuator(a agent.Actuator) Option {
	return func(b *builderState) { b.actuator = a }
}

// WithClassifier overrides the goal classification policy.
func WithClassifier(c agent.Classifier) Option {
	return func(b *builderState) { b.classifier = c }
}

// WithLiveBrowser attaches a real Chrome session as the frame source,
// signal source, and actuator.
func WithLiveBrowser() Option {
	return func(b *builderState) { b.liveSession = true }
}

// New wires every component from configuration. Overrides default to inert
// static sources so the command surface works without a browser attached.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Components, error) {
	state := &builderState{}
	for _, opt := range opts {
		opt(state)
	}

	backend, err := buildBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	nmap := neuralmap.New(cfg.Locator.MapCapacity, cfg.Locator.MapMaxAge)
	loc := locator.New(backend, nmap, cfg.Locator, logger)
	heal := healer.New(backend, cfg.Healer, logger)
	obs := observer.New(cfg.Observer)
	model := worldmodel.Default()

	c := &Components{
		Backend:   backend,
		NeuralMap: nmap,
		Locator:   loc,
		Healer:    heal,
		Observer:  obs,
		Model:     model,
		logger:    logger.Named("service"),
	}

	if state.liveSession {
		session, err := browser.NewSession(ctx, cfg.Browser, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to attach live browser: %w", err)
		}
		c.session = session
		if state.frames == nil {
			state.frames = session
		}
		if state.signals == nil {
			state.signals = session
		}
		if state.actuator == nil {
			state.actuator = session
		}
	}

	if state.frames == nil {
		state.frames = agent.StaticFrameSource{}
	}
	if state.signals == nil {
		// Without live signals the environment reads as settled, so goal
		// execution is gated on perception alone.
		state.signals = agent.StaticSignalSource{StabilitySample: schemas.StabilitySample{
			TimeSinceLastInteraction: time.Hour,
		}}
	}

	classifier := state.classifier
	if classifier == nil {
		classifier, err = buildClassifier(ctx, cfg, model, logger)
		if err != nil {
			return nil, err
		}
	}

	c.Agent = agent.New(loc, heal, obs, model, classifier,
		state.frames, state.signals, state.actuator, cfg.Agent, logger)

	c.logger.Info("components wired",
		zap.String("perception_backend", cfg.Perception.Backend),
		zap.String("classifier", cfg.Agent.Classifier),
		zap.Bool("live_browser", c.session != nil))
	return c, nil
}

// Session returns the live browser session, or nil when none is attached.
func (c *Components) Session() *browser.Session {
	return c.session
}

// Shutdown releases held resources. Safe to call more than once.
func (c *Components) Shutdown() {
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	c.logger.Debug("components shut down")
}

func buildBackend(cfg *config.Config, logger *zap.Logger) (perception.Backend, error) {
	var backend perception.Backend
	switch cfg.Perception.Backend {
	case "simulated", "":
		backend = perception.NewSimulatedBackend(cfg.Perception.GridSize, logger)
	default:
		return nil, fmt.Errorf("unknown perception backend %q", cfg.Perception.Backend)
	}
	return perception.NewRateLimited(backend, cfg.Perception.MaxCallsPerSecond), nil
}

func buildClassifier(ctx context.Context, cfg *config.Config, model *worldmodel.Model, logger *zap.Logger) (agent.Classifier, error) {
	switch cfg.Agent.Classifier {
	case "keyword", "":
		return agent.NewKeywordClassifier(), nil
	case "llm":
		return agent.NewLLMClassifier(ctx, cfg.Agent.LLM, model, logger)
	default:
		return nil, fmt.Errorf("unknown classifier policy %q", cfg.Agent.Classifier)
	}
}
