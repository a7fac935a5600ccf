package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

// Classifier maps a natural-language goal onto a target state of the world
// model. The policy is pluggable: the keyword classifier below is the
// default, and an LLM-backed one can be swapped in without touching the rest
// of the agent.
type Classifier interface {
	Classify(ctx context.Context, goal string) (string, error)
}

// keywordRule maps goal keywords to a target state. Rules are evaluated in
// order; the first hit wins, so more specific intents come first.
type keywordRule struct {
	keywords []string
	target   string
}

var defaultRules = []keywordRule{
	{[]string{"confirm", "complete the purchase", "place the order", "place order"}, "Confirmation"},
	{[]string{"checkout", "purchase", "buy", "pay"}, "Checkout"},
	{[]string{"cart", "basket"}, "Cart"},
	{[]string{"product", "item", "browse"}, "Product"},
	{[]string{"login", "log in", "sign in", "dashboard", "account"}, "Dashboard"},
	{[]string{"home", "landing"}, "Home"},
}

// KeywordClassifier resolves goals by keyword presence.
type KeywordClassifier struct {
	rules []keywordRule
}

// NewKeywordClassifier returns the default keyword policy.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{rules: defaultRules}
}

// Classify implements Classifier. A goal matching no rule is unplannable and
// reported as unreachable rather than silently mapped to a default state.
func (k *KeywordClassifier) Classify(_ context.Context, goal string) (string, error) {
	lower := strings.ToLower(goal)
	for _, rule := range k.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.target, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no target state matches goal %q", schemas.ErrUnreachable, goal)
}
