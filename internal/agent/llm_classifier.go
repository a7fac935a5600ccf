package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/veritas-qa/veritas-core/api/schemas"
	"github.com/veritas-qa/veritas-core/internal/config"
	"github.com/veritas-qa/veritas-core/internal/worldmodel"
)

// LLMClassifier asks a Gemini model to pick the target state for a goal.
// The model is constrained to the world model's state names; anything else
// in the reply is rejected so a hallucinated state can never enter planning.
type LLMClassifier struct {
	client *genai.Client
	model  string
	states []string
	logger *zap.Logger
}

// NewLLMClassifier builds the classifier for the given world model's states.
func NewLLMClassifier(ctx context.Context, cfg config.LLMConfig, model *worldmodel.Model, logger *zap.Logger) (*LLMClassifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm classifier requires an API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	if model == nil {
		model = worldmodel.Default()
	}

	return &LLMClassifier{
		client: client,
		model:  cfg.Model,
		states: model.StateNames(),
		logger: logger.Named("agent.llm_classifier"),
	}, nil
}

// Classify implements Classifier.
func (l *LLMClassifier) Classify(ctx context.Context, goal string) (string, error) {
	prompt := fmt.Sprintf(
		"You map a QA goal onto exactly one application state.\n"+
			"States: %s\n"+
			"Goal: %s\n"+
			"Reply with one state name and nothing else.",
		strings.Join(l.states, ", "), goal)

	resp, err := l.client.Models.GenerateContent(ctx, l.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: llm classification failed: %v", schemas.ErrBackendUnavailable, err)
	}

	answer := strings.TrimSpace(resp.Text())
	for _, s := range l.states {
		if strings.EqualFold(answer, s) {
			l.logger.Debug("llm classified goal",
				zap.String("goal", goal),
				zap.String("target", s))
			return s, nil
		}
	}

	return "", fmt.Errorf("%w: llm proposed unknown state %q for goal %q",
		schemas.ErrUnreachable, answer, goal)
}
