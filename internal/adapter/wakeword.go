package adapter

import (
	"context"
	"fmt"

	"github.com/voxrun/assistant/internal/audio"
	"github.com/voxrun/assistant/internal/pipeline"
	"github.com/voxrun/assistant/pkg/audioframe"
	"github.com/voxrun/assistant/pkg/provider/wakeword"
)

// WakeWordDetector implements pipeline.WakeWordDetector over a
// wakeword.Engine, converting the VAD's float32 segment into the 16-bit PCM
// the engine expects.
type WakeWordDetector struct {
	engine     wakeword.Engine
	sampleRate int
}

// WakeWordOption configures a WakeWordDetector.
type WakeWordOption func(*WakeWordDetector)

// WithWakeWordSampleRate overrides the default 16 kHz PCM rate assumed for
// audio.Frame samples.
func WithWakeWordSampleRate(rate int) WakeWordOption {
	return func(w *WakeWordDetector) { w.sampleRate = rate }
}

// NewWakeWordDetector builds a WakeWordDetector backed by engine.
func NewWakeWordDetector(engine wakeword.Engine, opts ...WakeWordOption) *WakeWordDetector {
	w := &WakeWordDetector{engine: engine, sampleRate: audioframe.DefaultSampleRate}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Detect flattens seg's frames to PCM16 and checks them against the wrapped
// engine's configured wake phrase(s).
func (w *WakeWordDetector) Detect(ctx context.Context, seg audio.Segment) (pipeline.WakeWordResult, error) {
	pcm := audioframe.Float32ToPCM16LE(flattenSamples(seg))
	result, err := w.engine.Detect(ctx, pcm, w.sampleRate)
	if err != nil {
		return pipeline.WakeWordResult{}, fmt.Errorf("adapter: wakeword: %w", err)
	}
	return pipeline.WakeWordResult{Detected: result.Detected, Confidence: result.Confidence}, nil
}
