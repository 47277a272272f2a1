package nlu

import (
	"context"
	"time"

	"github.com/voxrun/assistant/internal/donation"
	"github.com/voxrun/assistant/internal/session"
)

const defaultLLMThreshold = 0.6

// LLMRecognizer is implemented by an adapter over an LLM provider
// (pkg/provider/llm) constrained to a strict grammar: it must return either
// one of candidates or the empty string (no match).
type LLMRecognizer interface {
	RecognizeIntent(ctx context.Context, text string, candidates []string) (intentName string, entities map[string]any, confidence float64, err error)
}

// LLMPlugin is the optional LLM-as-NLU cascade stage: it
// sends the normalized text and the set of eligible intents to an LLM and
// accepts the response only if the returned name is one of the candidates.
type LLMPlugin struct {
	recognizer LLMRecognizer
	threshold  float64
}

// LLMOption configures an LLMPlugin.
type LLMOption func(*LLMPlugin)

// WithLLMThreshold overrides the default 0.6 confidence gate.
func WithLLMThreshold(t float64) LLMOption {
	return func(p *LLMPlugin) { p.threshold = t }
}

// NewLLMPlugin builds an LLMPlugin backed by recognizer. A nil recognizer
// makes Recognize always report apperr.ErrDependencyUnavailable.
func NewLLMPlugin(recognizer LLMRecognizer, opts ...LLMOption) *LLMPlugin {
	p := &LLMPlugin{recognizer: recognizer, threshold: defaultLLMThreshold}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *LLMPlugin) Name() string      { return "llm_nlu" }
func (p *LLMPlugin) Threshold() float64 { return p.threshold }

func (p *LLMPlugin) Recognize(ctx context.Context, text string, sctx *session.UnifiedContext, snapshot *donation.Snapshot) (*PluginResult, error) {
	if p.recognizer == nil {
		return nil, errDependencyUnavailable("llm_nlu", "no recognizer configured")
	}

	candidates := make([]string, 0, len(snapshot.AllMethods()))
	for _, m := range snapshot.AllMethods() {
		candidates = append(candidates, m.FullIntentName())
	}

	name, entities, confidence, err := p.recognizer.RecognizeIntent(ctx, text, candidates)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}

	method, ok := snapshot.Lookup(name)
	if !ok {
		// Rejected: the LLM returned a name outside the known set.
		return nil, nil
	}

	intent := Intent{
		Name:       method.FullIntentName(),
		RawText:    text,
		Confidence: confidence,
		Timestamp:  time.Now(),
		Entities:   entities,
	}
	if intent.Entities == nil {
		intent.Entities = make(map[string]any)
	}
	if sctx != nil {
		intent.SessionID = sctx.SessionID()
	}
	intent.DeriveDomainAction()

	return &PluginResult{Intent: intent, Method: method}, nil
}
