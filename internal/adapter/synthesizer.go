package adapter

import (
	"context"
	"fmt"
	"os"

	"github.com/voxrun/assistant/internal/session"
	"github.com/voxrun/assistant/pkg/audioframe"
	"github.com/voxrun/assistant/pkg/provider/tts"
	"github.com/voxrun/assistant/pkg/types"
)

// Synthesizer implements pipeline.Synthesizer over a tts.Provider: it pushes
// the full response text as a single fragment, drains the resulting PCM
// chunks, and wraps them in a WAV container at the requested path.
type Synthesizer struct {
	provider   tts.Provider
	voice      types.VoiceProfile
	sampleRate int
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithVoice sets the voice profile passed to the provider on every request.
func WithVoice(v types.VoiceProfile) SynthesizerOption {
	return func(s *Synthesizer) { s.voice = v }
}

// WithSynthesizerSampleRate overrides the default 16 kHz rate used to wrap
// the provider's raw PCM output in a WAV header.
func WithSynthesizerSampleRate(rate int) SynthesizerOption {
	return func(s *Synthesizer) { s.sampleRate = rate }
}

// NewSynthesizer builds a Synthesizer backed by provider.
func NewSynthesizer(provider tts.Provider, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{provider: provider, sampleRate: audioframe.DefaultSampleRate}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SynthesizeToFile renders text via the wrapped provider and writes the
// result as a WAV file at path.
func (s *Synthesizer) SynthesizeToFile(ctx context.Context, text string, sctx *session.UnifiedContext, path string) error {
	textCh := make(chan string, 1)
	textCh <- text
	close(textCh)

	audioCh, err := s.provider.SynthesizeStream(ctx, textCh, s.voice)
	if err != nil {
		return fmt.Errorf("adapter: synthesizer: start stream: %w", err)
	}

	var pcm []byte
	for chunk := range audioCh {
		pcm = append(pcm, chunk...)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("adapter: synthesizer: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("adapter: synthesizer: create file: %w", err)
	}
	defer f.Close()

	if err := audioframe.WriteWAV(f, pcm, s.sampleRate, 1); err != nil {
		return fmt.Errorf("adapter: synthesizer: %w", err)
	}
	return nil
}
