package nlu

import (
	"context"
	"time"

	"github.com/voxrun/assistant/internal/donation"
	"github.com/voxrun/assistant/internal/session"
)

const (
	fallbackIntentName = "conversation.general"
	fallbackConfidence = 0.3
)

// RejectedCandidate records the best-scoring intent that still fell below
// its stage's threshold, for inclusion in the fallback context.
type RejectedCandidate struct {
	IntentName string
	Score      float64
}

// BuildFallbackIntent constructs the conversation.general fallback Intent
// It never fails. rejected and ambiguousEntities may be
// nil/empty when no earlier stage produced a near-miss.
func BuildFallbackIntent(text, sessionID string, attempted []string, rejected *RejectedCandidate, ambiguousEntities map[string]any) Intent {
	fallbackCtx := map[string]any{
		"original_text":        text,
		"attempted_providers":  attempted,
		"ambiguous_entities":   ambiguousEntities,
	}
	if rejected != nil {
		fallbackCtx["rejected_intent"] = rejected.IntentName
		fallbackCtx["rejected_score"] = rejected.Score
	}

	return Intent{
		Name:       fallbackIntentName,
		Domain:     "conversation",
		Action:     "general",
		RawText:    text,
		SessionID:  sessionID,
		Confidence: fallbackConfidence,
		Timestamp:  time.Now(),
		Entities: map[string]any{
			"_recognition_provider": "fallback",
			"_fallback_context":     fallbackCtx,
		},
	}
}

// FallbackPlugin is a Plugin-shaped wrapper around BuildFallbackIntent, used
// so it can appear in an enabled_plugins list alongside the other stages. In
// practice the Cascade invokes BuildFallbackIntent directly at the end of
// its loop so it can carry the rejected-candidate and attempted-providers
// context the Plugin interface doesn't expose; this type exists for
// configuration symmetry and for callers that want a bare fallback without
// a full cascade.
type FallbackPlugin struct{}

func NewFallbackPlugin() *FallbackPlugin { return &FallbackPlugin{} }

func (p *FallbackPlugin) Name() string      { return "conversation_fallback" }
func (p *FallbackPlugin) Threshold() float64 { return 0 }

func (p *FallbackPlugin) Recognize(ctx context.Context, text string, sctx *session.UnifiedContext, snapshot *donation.Snapshot) (*PluginResult, error) {
	sessionID := ""
	if sctx != nil {
		sessionID = sctx.SessionID()
	}
	intent := BuildFallbackIntent(text, sessionID, nil, nil, nil)
	return &PluginResult{Intent: intent}, nil
}
