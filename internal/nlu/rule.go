package nlu

import (
	"context"
	"time"

	"github.com/voxrun/assistant/internal/donation"
	"github.com/voxrun/assistant/internal/session"
)

const defaultRuleThreshold = 0.75

// RulePlugin is the optional morphological rule stage: it
// matches a method's compiled token_patterns against the tokenized input,
// returning the highest-scoring method whose pattern matches, boosted by
// method.boost. A handler-level negative_patterns hit disqualifies every
// method of that handler regardless of an otherwise-positive match.
type RulePlugin struct {
	threshold float64
}

// RuleOption configures a RulePlugin.
type RuleOption func(*RulePlugin)

// WithRuleThreshold overrides the default 0.75 confidence gate.
func WithRuleThreshold(t float64) RuleOption {
	return func(p *RulePlugin) { p.threshold = t }
}

// NewRulePlugin builds a RulePlugin.
func NewRulePlugin(opts ...RuleOption) *RulePlugin {
	p := &RulePlugin{threshold: defaultRuleThreshold}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *RulePlugin) Name() string      { return "rule_matcher" }
func (p *RulePlugin) Threshold() float64 { return p.threshold }

func (p *RulePlugin) Recognize(ctx context.Context, text string, sctx *session.UnifiedContext, snapshot *donation.Snapshot) (*PluginResult, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	type scored struct {
		method      *donation.MethodDonation
		confidence  float64
		slotMatches map[string]string
	}
	var best scored

	for _, m := range snapshot.AllMethods() {
		if handlerNegated(snapshot, m, tokens) {
			continue
		}

		matchedAny := false
		for _, cp := range m.CompiledTokenPatterns() {
			if _, _, _, ok := donation.Match(cp, tokens); ok {
				matchedAny = true
				break
			}
		}
		if !matchedAny {
			continue
		}

		confidence := 1.0 * m.EffectiveBoost()
		if confidence > 1.0 {
			confidence = 1.0
		}
		if confidence <= best.confidence {
			continue
		}

		slotMatches := make(map[string]string)
		for slotName, patterns := range m.CompiledSlotPatterns() {
			for _, cp := range patterns {
				if _, _, slotText, ok := donation.Match(cp, tokens); ok {
					slotMatches[slotName] = slotText
					break
				}
			}
		}

		best = scored{method: m, confidence: confidence, slotMatches: slotMatches}
	}

	if best.method == nil {
		return nil, nil
	}

	intent := Intent{
		Name:       best.method.FullIntentName(),
		RawText:    text,
		Confidence: best.confidence,
		Timestamp:  time.Now(),
		Entities:   make(map[string]any),
	}
	if sctx != nil {
		intent.SessionID = sctx.SessionID()
	}
	intent.DeriveDomainAction()

	return &PluginResult{Intent: intent, Method: best.method, SlotMatches: best.slotMatches}, nil
}

func handlerNegated(snapshot *donation.Snapshot, m *donation.MethodDonation, tokens []donation.Token) bool {
	h, ok := snapshot.Handler(m.HandlerDomain())
	if !ok {
		return false
	}
	for _, cp := range h.CompiledNegativePatterns() {
		if _, _, _, matched := donation.Match(cp, tokens); matched {
			return true
		}
	}
	return false
}
