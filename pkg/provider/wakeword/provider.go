// Package wakeword defines the Engine interface for wake-phrase spotting
// backends: given one voice segment, does it contain the configured wake
// phrase. Grounded on pkg/provider/vad's interface-first, session-free
// synchronous style — detection is a single call, not a streaming session,
// since a voice segment is already a bounded unit of audio by the time the
// VAD hands it over.
package wakeword

import "context"

// Result is the outcome of one wake-phrase detection attempt.
type Result struct {
	// Detected reports whether the configured wake phrase was found.
	Detected bool

	// Phrase is the wake phrase that matched, empty when Detected is false.
	Phrase string

	// Confidence is the match strength in [0, 1].
	Confidence float64
}

// Engine is the abstraction over any wake-word backend.
//
// Implementations must be safe for concurrent use: multiple voice segments
// from different sessions may be checked in parallel.
type Engine interface {
	// Detect analyzes pcm (16-bit signed little-endian mono PCM at
	// sampleRate) for the configured wake phrase.
	Detect(ctx context.Context, pcm []byte, sampleRate int) (Result, error)
}
