package nlu

import (
	"context"
	"errors"
	"log/slog"

	"github.com/voxrun/assistant/internal/apperr"
	"github.com/voxrun/assistant/internal/donation"
	"github.com/voxrun/assistant/internal/session"
)

const defaultCascadeThreshold = 0.8

// Cascade runs an ordered list of Plugin stages, stopping at the first one
// whose confidence meets its threshold, and always falling through to the
// conversation fallback. The keyword matcher must be present and first;
// Cascade does not enforce this itself (the wiring layer auto-prepends it
// if absent) but NewCascade panics if called with zero plugins to catch a
// misconfigured cascade early.
type Cascade struct {
	plugins         []Plugin
	defaultThreshold float64
	registry        *donation.Registry
}

// CascadeOption configures a Cascade.
type CascadeOption func(*Cascade)

// WithDefaultThreshold overrides the cascade-wide default confidence gate
// (0.8) used when a plugin's own Threshold() returns <= 0.
func WithDefaultThreshold(t float64) CascadeOption {
	return func(c *Cascade) { c.defaultThreshold = t }
}

// NewCascade builds a Cascade over plugins, in the order they should run.
// registry supplies the donation snapshot each Recognize call reads.
func NewCascade(registry *donation.Registry, plugins []Plugin, opts ...CascadeOption) *Cascade {
	if len(plugins) == 0 {
		panic("nlu: NewCascade requires at least one plugin")
	}
	c := &Cascade{
		plugins:         plugins,
		defaultThreshold: defaultCascadeThreshold,
		registry:        registry,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cascade) thresholdFor(p Plugin) float64 {
	if t := p.Threshold(); t > 0 {
		return t
	}
	return c.defaultThreshold
}

// Recognize implements the cascade's never-fails contract: never returns an error
// except when the chosen stage's parameter extraction fails
// (apperr.ErrParameterExtraction), which the caller (the pipeline
// orchestrator's dispatch) converts into a clarification prompt. It always returns a usable Intent:
// worst case, the conversation.general fallback.
func (c *Cascade) Recognize(ctx context.Context, text string, sctx *session.UnifiedContext) (Intent, error) {
	snapshot := c.registry.Current()

	attempted := make([]string, 0, len(c.plugins))
	var rejected *RejectedCandidate

	for _, plugin := range c.plugins {
		attempted = append(attempted, plugin.Name())

		result, err := plugin.Recognize(ctx, text, sctx, snapshot)
		if err != nil {
			if errors.Is(err, apperr.ErrDependencyUnavailable) {
				slog.Debug("nlu: plugin unavailable, cascading", "plugin", plugin.Name(), "err", err)
				continue
			}
			slog.Warn("nlu: plugin failed, cascading", "plugin", plugin.Name(), "err", err)
			continue
		}
		if result == nil {
			continue
		}

		if result.Intent.Confidence >= c.thresholdFor(plugin) {
			return c.finalize(result, sctx)
		}

		if rejected == nil || result.Intent.Confidence > rejected.Score {
			rejected = &RejectedCandidate{IntentName: result.Intent.Name, Score: result.Intent.Confidence}
		}
	}

	sessionID := ""
	if sctx != nil {
		sessionID = sctx.SessionID()
	}
	return BuildFallbackIntent(text, sessionID, attempted, rejected, nil), nil
}

// finalize runs the parameter extractor over the chosen method and merges
// the result into the intent's entities.
func (c *Cascade) finalize(result *PluginResult, sctx *session.UnifiedContext) (Intent, error) {
	intent := result.Intent
	if result.Method == nil {
		return intent, nil
	}

	tokens := Tokenize(intent.RawText)
	entities, err := donation.ExtractParameters(result.Method, tokens, result.SlotMatches)
	if err != nil {
		return intent, err
	}
	for k, v := range entities {
		intent.Entities[k] = v
	}
	return intent, nil
}
