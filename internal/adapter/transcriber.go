// Package adapter bridges the narrow capability interfaces internal/pipeline
// and internal/nlu define (Transcriber, Synthesizer, AudioOutput,
// WakeWordDetector, LLMRecognizer) to concrete pkg/provider/* backends.
// Keeping this glue in its own package, rather than having pipeline or nlu
// import provider packages directly, mirrors the narrow-local-interface
// pattern already used throughout the core: core packages stay decoupled
// from any specific SDK, and only this layer knows about both sides.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/voxrun/assistant/internal/audio"
	"github.com/voxrun/assistant/internal/session"
	"github.com/voxrun/assistant/pkg/audioframe"
	"github.com/voxrun/assistant/pkg/provider/stt"
)

// Transcriber implements pipeline.Transcriber over an stt.Provider, driving
// its streaming SessionHandle synchronously for one already-bounded voice
// segment: start a session, send the whole segment as one chunk, and wait
// for its first final transcript.
type Transcriber struct {
	provider   stt.Provider
	sampleRate int
	timeout    time.Duration
}

// TranscriberOption configures a Transcriber.
type TranscriberOption func(*Transcriber)

// WithTranscriberSampleRate overrides the default 16 kHz PCM rate assumed
// for audio.Frame samples.
func WithTranscriberSampleRate(rate int) TranscriberOption {
	return func(t *Transcriber) { t.sampleRate = rate }
}

// WithTranscriberTimeout bounds how long Transcribe waits for a final
// transcript once the segment has been sent. Defaults to 10 seconds.
func WithTranscriberTimeout(d time.Duration) TranscriberOption {
	return func(t *Transcriber) { t.timeout = d }
}

// NewTranscriber builds a Transcriber backed by provider.
func NewTranscriber(provider stt.Provider, opts ...TranscriberOption) *Transcriber {
	t := &Transcriber{
		provider:   provider,
		sampleRate: audioframe.DefaultSampleRate,
		timeout:    10 * time.Second,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Transcribe flattens seg's frames to PCM16 and transcribes them via the
// wrapped provider, scoping the request's language to sctx's.
func (t *Transcriber) Transcribe(ctx context.Context, seg audio.Segment, sctx *session.UnifiedContext) (string, error) {
	pcm := audioframe.Float32ToPCM16LE(flattenSamples(seg))

	lang := ""
	if sctx != nil {
		lang = sctx.Language()
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	handle, err := t.provider.StartStream(ctx, stt.StreamConfig{
		SampleRate: t.sampleRate,
		Channels:   1,
		Language:   lang,
	})
	if err != nil {
		return "", fmt.Errorf("adapter: transcriber: start stream: %w", err)
	}
	defer handle.Close()

	if err := handle.SendAudio(pcm); err != nil {
		return "", fmt.Errorf("adapter: transcriber: send audio: %w", err)
	}

	select {
	case tr, ok := <-handle.Finals():
		if !ok {
			return "", nil
		}
		return tr.Text, nil
	case <-ctx.Done():
		return "", fmt.Errorf("adapter: transcriber: %w", ctx.Err())
	}
}

func flattenSamples(seg audio.Segment) []float32 {
	n := 0
	for _, f := range seg.Frames {
		n += len(f.Samples)
	}
	out := make([]float32, 0, n)
	for _, f := range seg.Frames {
		out = append(out, f.Samples...)
	}
	return out
}
