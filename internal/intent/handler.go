// Package intent implements the IntentOrchestrator: handler
// dispatch by registered pattern, contextual-command resolution against a
// room's active fire-and-forget actions, and fallback routing to the
// conversation handler.
package intent

import (
	"context"

	"github.com/voxrun/assistant/internal/nlu"
	"github.com/voxrun/assistant/internal/session"
)

// Handler executes a recognized Intent against a session's UnifiedContext.
// Implementations must route every mutation (history append, handler
// context edits, active-action bookkeeping) through the context's own
// methods, never by holding a separate copy.
type Handler interface {
	Execute(ctx context.Context, in nlu.Intent, sctx *session.UnifiedContext) (nlu.IntentResult, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, in nlu.Intent, sctx *session.UnifiedContext) (nlu.IntentResult, error)

func (f HandlerFunc) Execute(ctx context.Context, in nlu.Intent, sctx *session.UnifiedContext) (nlu.IntentResult, error) {
	return f(ctx, in, sctx)
}
