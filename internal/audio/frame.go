// Package audio implements the voice-activity-detection state machine: a
// four-state {SILENCE, VOICE_ONSET, VOICE_ACTIVE, VOICE_ENDED} classifier
// with hysteresis that turns a stream of fixed-duration PCM frames into
// variable-length voice segments for downstream ASR. Its mutex-guarded
// explicit-state-enum style mirrors internal/resilience's CircuitBreaker.
package audio

import "time"

// Frame is one fixed-duration chunk of mono PCM audio, samples normalized
// to [-1, 1].
type Frame struct {
	Samples   []float32
	Timestamp time.Time
}

// malformed reports whether f cannot be classified: empty, or containing a
// sample outside the normalized range. The processor is infallible against
// bad frames — malformed ones are counted and skipped rather than raised as
// errors.
func (f Frame) malformed() bool {
	if len(f.Samples) == 0 {
		return true
	}
	for _, s := range f.Samples {
		if s < -1.0001 || s > 1.0001 {
			return true
		}
	}
	return false
}

// Segment is a contiguous run of frames classified as speech, bounded by
// detected onset and offset.
type Segment struct {
	Frames     []Frame
	StartedAt  time.Time
	EndedAt    time.Time
	Truncated  bool
}
