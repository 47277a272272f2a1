package nlu

import (
	"context"

	"github.com/voxrun/assistant/internal/donation"
	"github.com/voxrun/assistant/internal/session"
)

// PluginResult is what a Plugin returns for a match. Method is non-nil when
// the match resolved to a specific donation method, enabling the cascade to
// run the parameter extractor afterward; SlotMatches carries any
// slot_name -> matched text pairs the plugin already produced (the rule
// stage populates these from slot_patterns; other stages leave it nil).
type PluginResult struct {
	Intent      Intent
	Method      *donation.MethodDonation
	SlotMatches map[string]string
}

// Plugin is one stage of the NLU cascade. Recognize returns (nil, nil) to
// mean "no match, try the next plugin", a non-nil result to mean "matched",
// or a non-nil error to signal the plugin itself is unavailable
// (apperr.ErrDependencyUnavailable) or otherwise failed; the cascade logs
// and skips to the next plugin either way.
type Plugin interface {
	Name() string
	Recognize(ctx context.Context, text string, sctx *session.UnifiedContext, snapshot *donation.Snapshot) (*PluginResult, error)
	// Threshold returns this plugin's confidence gate. A value <= 0 means
	// "use the cascade default".
	Threshold() float64
}
