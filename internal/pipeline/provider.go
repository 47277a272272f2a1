package pipeline

import (
	"context"

	"github.com/voxrun/assistant/internal/audio"
	"github.com/voxrun/assistant/internal/session"
)

// WakeWordDetector is the narrow capability the orchestrator needs from a
// wake-word engine: does this voice segment contain the wake phrase. Adapted
// over a concrete pkg/provider backend; the orchestrator never depends on a
// provider package directly, mirroring internal/nlu's LLMRecognizer seam.
type WakeWordDetector interface {
	Detect(ctx context.Context, segment audio.Segment) (WakeWordResult, error)
}

// WakeWordResult is the outcome of one wake-word detection attempt.
type WakeWordResult struct {
	Detected   bool
	Confidence float64
}

// Transcriber turns a voice segment into text, scoped to the caller's
// session (language, vocabulary hints carried in sctx's client metadata).
type Transcriber interface {
	Transcribe(ctx context.Context, segment audio.Segment, sctx *session.UnifiedContext) (string, error)
}

// Synthesizer renders text to a playable audio file at the path the caller
// supplies. The orchestrator owns the file's lifetime: it deletes the path
// once playback finishes, whether or not playback succeeded.
type Synthesizer interface {
	SynthesizeToFile(ctx context.Context, text string, sctx *session.UnifiedContext, path string) error
}

// AudioOutput plays back a previously synthesized file.
type AudioOutput interface {
	Play(ctx context.Context, path string) error
}
