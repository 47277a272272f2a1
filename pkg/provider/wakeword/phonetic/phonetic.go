// Package phonetic implements wakeword.Engine by transcribing the segment
// with an stt.Provider and fuzzy-matching the result against a configured
// set of wake phrases using Levenshtein-ratio similarity, grounded on the
// same matchr library internal/nlu's fuzzy cascade stage uses for keyword
// scoring (internal/nlu/fuzzy.go's levenshteinRatio).
//
// This trades wake-word latency for simplicity: a dedicated keyword-spotting
// model would react before the utterance finishes, but reusing the already-
// wired STT backend avoids a second audio model in the stack.
package phonetic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/voxrun/assistant/pkg/provider/stt"
	"github.com/voxrun/assistant/pkg/provider/wakeword"
)

const defaultThreshold = 0.75

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold overrides the default 0.75 similarity gate.
func WithThreshold(t float64) Option {
	return func(e *Engine) { e.threshold = t }
}

// WithLanguage sets the BCP-47 language hint passed to the STT provider.
func WithLanguage(lang string) Option {
	return func(e *Engine) { e.language = lang }
}

// WithSampleRate overrides the default 16 kHz PCM sample rate assumption.
func WithSampleRate(rate int) Option {
	return func(e *Engine) { e.sampleRate = rate }
}

// WithTimeout bounds how long Detect waits for a transcript before giving
// up. Defaults to 3 seconds, generous for a single short segment.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// Engine implements wakeword.Engine over an stt.Provider and a static list
// of wake phrases.
type Engine struct {
	provider   stt.Provider
	phrases    []string
	threshold  float64
	language   string
	sampleRate int
	timeout    time.Duration
}

// New builds an Engine that spots any of phrases via provider. phrases are
// matched case-insensitively; at least one must be given.
func New(provider stt.Provider, phrases []string, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("wakeword/phonetic: stt provider is required")
	}
	if len(phrases) == 0 {
		return nil, fmt.Errorf("wakeword/phonetic: at least one wake phrase is required")
	}
	e := &Engine{
		provider:   provider,
		phrases:    phrases,
		threshold:  defaultThreshold,
		sampleRate: 16000,
		timeout:    3 * time.Second,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Detect transcribes pcm and reports whether the result matches any
// configured wake phrase above the similarity threshold.
func (e *Engine) Detect(ctx context.Context, pcm []byte, sampleRate int) (wakeword.Result, error) {
	if sampleRate <= 0 {
		sampleRate = e.sampleRate
	}

	text, err := e.transcribeOnce(ctx, pcm, sampleRate)
	if err != nil {
		return wakeword.Result{}, fmt.Errorf("wakeword/phonetic: transcribe: %w", err)
	}
	if text == "" {
		return wakeword.Result{}, nil
	}

	best := struct {
		phrase string
		score  float64
	}{}
	textLower := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range e.phrases {
		score := levenshteinRatio(textLower, strings.ToLower(phrase))
		if score > best.score {
			best.phrase, best.score = phrase, score
		}
	}

	if best.score < e.threshold {
		return wakeword.Result{Confidence: best.score}, nil
	}
	return wakeword.Result{Detected: true, Phrase: best.phrase, Confidence: best.score}, nil
}

// transcribeOnce drives provider's streaming SessionHandle synchronously for
// a single bounded chunk of audio: start, send, close, then read whatever
// final transcript (if any) arrives before ctx or the configured timeout
// expires.
func (e *Engine) transcribeOnce(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	handle, err := e.provider.StartStream(ctx, stt.StreamConfig{
		SampleRate: sampleRate,
		Channels:   1,
		Language:   e.language,
	})
	if err != nil {
		return "", fmt.Errorf("start stream: %w", err)
	}
	defer handle.Close()

	if err := handle.SendAudio(pcm); err != nil {
		return "", fmt.Errorf("send audio: %w", err)
	}

	select {
	case t, ok := <-handle.Finals():
		if !ok {
			return "", nil
		}
		return t.Text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// levenshteinRatio converts an edit distance into a similarity ratio in
// [0,1]: 1 - distance / max(len(a), len(b)).
func levenshteinRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	dist := matchr.Levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	ratio := 1 - float64(dist)/float64(maxLen)
	if ratio < 0 {
		ratio = 0
	}
	return ratio
}

// Ensure Engine implements wakeword.Engine at compile time.
var _ wakeword.Engine = (*Engine)(nil)
