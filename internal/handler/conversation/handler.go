// Package conversation implements the fallback handler unrecognized
// utterances route to: it asks an LLM provider for a free-text reply,
// grounded in the session's recent conversation history, and always speaks
// the result.
package conversation

import (
	"context"
	"fmt"

	"github.com/voxrun/assistant/internal/nlu"
	"github.com/voxrun/assistant/internal/session"
	"github.com/voxrun/assistant/pkg/provider/llm"
	"github.com/voxrun/assistant/pkg/types"
)

const systemPrompt = "You are a helpful, concise voice assistant. Reply in one or two short " +
	"sentences suitable for text-to-speech playback."

// maxHistoryTurns bounds how many prior interactions are replayed into the
// completion request.
const maxHistoryTurns = 5

// Handler implements intent.Handler for the "conversation" domain.
type Handler struct {
	provider llm.Provider
}

// New builds a Handler backed by provider. A nil provider makes Execute
// return a fixed apology instead of calling out to an LLM, so the domain can
// still be registered (and donation validation satisfied) in deployments
// with no LLM configured.
func New(provider llm.Provider) *Handler {
	return &Handler{provider: provider}
}

// Execute implements intent.Handler.
func (h *Handler) Execute(ctx context.Context, in nlu.Intent, sctx *session.UnifiedContext) (nlu.IntentResult, error) {
	if h.provider == nil {
		return nlu.IntentResult{
			Success:     true,
			ShouldSpeak: true,
			Text:        "I'm not able to answer that right now.",
			IntentName:  in.Name,
			Confidence:  in.Confidence,
		}, nil
	}

	messages := history(sctx)
	messages = append(messages, types.Message{Role: "user", Content: in.RawText})

	resp, err := h.provider.Complete(ctx, llm.CompletionRequest{
		Messages:     messages,
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		return nlu.IntentResult{}, fmt.Errorf("conversation: complete: %w", err)
	}

	return nlu.IntentResult{
		Success:     true,
		ShouldSpeak: true,
		Text:        resp.Content,
		IntentName:  in.Name,
		Confidence:  in.Confidence,
	}, nil
}

// history replays up to the last maxHistoryTurns interactions as alternating
// user/assistant messages, oldest first.
func history(sctx *session.UnifiedContext) []types.Message {
	interactions := sctx.ConversationHistory()
	if len(interactions) > maxHistoryTurns {
		interactions = interactions[len(interactions)-maxHistoryTurns:]
	}

	messages := make([]types.Message, 0, len(interactions)*2)
	for _, it := range interactions {
		messages = append(messages,
			types.Message{Role: "user", Content: it.UserText},
			types.Message{Role: "assistant", Content: it.Response},
		)
	}
	return messages
}
