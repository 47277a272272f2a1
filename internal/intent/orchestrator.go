package intent

import (
	"context"
	"fmt"
	"time"

	"github.com/voxrun/assistant/internal/apperr"
	"github.com/voxrun/assistant/internal/nlu"
	"github.com/voxrun/assistant/internal/session"
)

// fallbackDomain marks the handler that should receive fallback-routed
// intents. The conversation handler registers under this
// domain.
const fallbackDomain = "conversation"

// Option configures an IntentOrchestrator.
type Option func(*IntentOrchestrator)

// WithDomainPriority installs the domain → priority map used to break ties
// between simultaneously active domains during contextual resolution.
func WithDomainPriority(p PriorityMap) Option {
	return func(o *IntentOrchestrator) { o.priorities = p }
}

// WithFallbackEnabled toggles whether a fallback intent is routed to the
// conversation handler when the LLM handler is enabled. Defaults to true if
// a fallback-domain handler is registered.
func WithFallbackEnabled(enabled bool) Option {
	return func(o *IntentOrchestrator) { o.fallbackEnabled = enabled; o.fallbackSet = true }
}

// IntentOrchestrator selects a handler for a recognized nlu.Intent and
// executes it. It never holds a lock across the handler's Execute call: any
// state it needs (contextual resolution) is read from the session's own
// locked accessors before dispatch.
type IntentOrchestrator struct {
	handlers        *HandlerRegistry
	priorities      PriorityMap
	fallbackEnabled bool
	fallbackSet     bool
}

// New builds an IntentOrchestrator dispatching through handlers.
func New(handlers *HandlerRegistry, opts ...Option) *IntentOrchestrator {
	o := &IntentOrchestrator{handlers: handlers, priorities: PriorityMap{}}
	for _, opt := range opts {
		opt(o)
	}
	if !o.fallbackSet {
		_, o.fallbackEnabled = handlers.Resolve(fallbackDomain + ".general")
	}
	return o
}

// Execute resolves in to a handler and runs it, applying contextual command
// resolution and fallback routing first.
func (o *IntentOrchestrator) Execute(ctx context.Context, in nlu.Intent, sctx *session.UnifiedContext) (nlu.IntentResult, error) {
	in.DeriveDomainAction()

	if isContextual(in.Name) {
		resolved, nothingActive := resolveContextual(sctx, o.priorities)
		if nothingActive {
			return nlu.IntentResult{
				Success:     false,
				ShouldSpeak: true,
				Text:        "nothing is currently active",
				IntentName:  in.Name,
			}, nil
		}
		action := actionSuffix(in.Name)
		in.Domain = resolved
		in.Action = action
		in.Name = resolved + "." + action
	}

	if isFallbackIntent(in) {
		o.routeFallbackContext(in, sctx)
		if o.fallbackEnabled {
			in.Name = fallbackDomain + "." + in.Action
			in.Domain = fallbackDomain
		}
	}

	handler, ok := o.handlers.Resolve(in.Name)
	if !ok {
		fallbackHandler, fbOk := o.handlers.Resolve(fallbackDomain + ".general")
		if !fbOk {
			return nlu.IntentResult{}, apperr.New(apperr.ErrHandlerNotFound, "no handler registered for intent %q", in.Name)
		}
		in.Domain = fallbackDomain
		in.Action = "general"
		in.Name = fallbackDomain + ".general"
		return fallbackHandler.Execute(ctx, in, sctx)
	}
	return handler.Execute(ctx, in, sctx)
}

// isFallbackIntent reports whether in is the cascade's fallback intent
// (internal/nlu.BuildFallbackIntent's conversation.general, tagged via the
// "_recognition_provider" entity).
func isFallbackIntent(in nlu.Intent) bool {
	provider, _ := in.Entities["_recognition_provider"].(string)
	return provider == "fallback"
}

// routeFallbackContext injects a system-level message into the conversation
// handler's context when the fallback intent carries a _fallback_context
// payload.
func (o *IntentOrchestrator) routeFallbackContext(in nlu.Intent, sctx *session.UnifiedContext) {
	fc, ok := in.Entities["_fallback_context"].(map[string]any)
	if !ok {
		return
	}
	msg := session.HandlerMessage{
		Role:    "system",
		Content: formatFallbackPrompt(fc),
	}
	sctx.AppendHandlerMessage(fallbackDomain, msg, time.Now())
}

func formatFallbackPrompt(fc map[string]any) string {
	return fmt.Sprintf(
		"The user's request could not be matched to a known command. "+
			"Original text: %v. Attempted providers: %v. Closest rejected intent: %v (score %v). "+
			"Ambiguous entities: %v. Treat this as open conversation.",
		fc["original_text"], fc["attempted_providers"], fc["rejected_intent"], fc["rejected_score"], fc["ambiguous_entities"],
	)
}
