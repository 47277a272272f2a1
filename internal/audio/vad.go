package audio

import (
	"context"
	"sync"
	"time"
)

// State is one of the four states of the VAD machine.
type State int

const (
	StateSilence State = iota
	StateVoiceOnset
	StateVoiceActive
	StateVoiceEnded
)

func (s State) String() string {
	switch s {
	case StateSilence:
		return "silence"
	case StateVoiceOnset:
		return "voice_onset"
	case StateVoiceActive:
		return "voice_active"
	case StateVoiceEnded:
		return "voice_ended"
	default:
		return "unknown"
	}
}

// Default tuning knobs for the voice-activity-detection state machine.
const (
	DefaultBaseThreshold          = 0.3
	DefaultVoiceFramesRequired    = 2
	DefaultSilenceFramesRequired  = 5
	DefaultSensitivity            = 1.5
	DefaultNoiseFloorAlpha        = 0.05
	DefaultMaxSegmentDuration     = 10 * time.Second
	DefaultBufferSizeFrames       = 100
	smoothingWindowSize           = 5
	smoothingAgreementFraction    = 0.6
)

// FrameDropSink is notified when the pre-roll buffer overflows and the
// oldest buffered frame is dropped.
// Implemented by internal/observe's Metrics in the wired pipeline; nil-safe
// default is a no-op.
type FrameDropSink interface {
	FrameDropped(reason string)
}

type noopDropSink struct{}

func (noopDropSink) FrameDropped(string) {}

// Option configures a Processor.
type Option func(*Processor)

func WithBaseThreshold(v float64) Option { return func(p *Processor) { p.baseThreshold = v } }

func WithVoiceFramesRequired(n int) Option {
	return func(p *Processor) { p.voiceFramesRequired = n }
}

func WithSilenceFramesRequired(n int) Option {
	return func(p *Processor) { p.silenceFramesRequired = n }
}

// WithZCR enables the zero-crossing-rate term of the voice predicate,
// requiring zcr to fall within [min, max].
func WithZCR(min, max float64) Option {
	return func(p *Processor) { p.useZCR = true; p.zcrMin = min; p.zcrMax = max }
}

// WithAdaptiveThreshold enables exponentially-smoothed noise-floor tracking;
// the effective threshold becomes max(baseThreshold, noiseFloor*sensitivity).
func WithAdaptiveThreshold(sensitivity float64) Option {
	return func(p *Processor) { p.adaptiveThreshold = true; p.sensitivity = sensitivity }
}

func WithNoiseFloorAlpha(alpha float64) Option { return func(p *Processor) { p.noiseFloorAlpha = alpha } }

// WithSmoothing enables the 5-frame sliding-window majority vote.
func WithSmoothing() Option { return func(p *Processor) { p.smoothing = true } }

func WithMaxSegmentDuration(d time.Duration) Option {
	return func(p *Processor) { p.maxSegmentDuration = d }
}

func WithBufferSizeFrames(n int) Option { return func(p *Processor) { p.bufferSizeFrames = n } }

func WithFrameDropSink(sink FrameDropSink) Option { return func(p *Processor) { p.dropSink = sink } }

// Processor implements the four-state VAD machine. Safe for concurrent use;
// ProcessFrame serializes on an internal mutex, mirroring the
// mutex-guarded-state-enum idiom internal/resilience's CircuitBreaker uses.
type Processor struct {
	baseThreshold         float64
	voiceFramesRequired   int
	silenceFramesRequired int
	useZCR                bool
	zcrMin, zcrMax        float64
	adaptiveThreshold     bool
	sensitivity           float64
	noiseFloorAlpha       float64
	smoothing             bool
	maxSegmentDuration    time.Duration
	bufferSizeFrames      int
	dropSink              FrameDropSink

	mu sync.Mutex

	state           State
	noiseFloor      float64
	positiveStreak  int
	negativeStreak  int
	smoothWindow    []bool
	preroll         []Frame // ring of recent frames for onset backfill
	segment         []Frame
	segmentStarted  time.Time

	malformedCount int
}

// NewProcessor builds a Processor with its default tuning knobs, overridden
// by opts.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		baseThreshold:         DefaultBaseThreshold,
		voiceFramesRequired:   DefaultVoiceFramesRequired,
		silenceFramesRequired: DefaultSilenceFramesRequired,
		sensitivity:           DefaultSensitivity,
		noiseFloorAlpha:       DefaultNoiseFloorAlpha,
		maxSegmentDuration:    DefaultMaxSegmentDuration,
		bufferSizeFrames:      DefaultBufferSizeFrames,
		dropSink:              noopDropSink{},
		state:                 StateSilence,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the processor's current state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// MalformedCount returns the number of frames skipped for being malformed.
func (p *Processor) MalformedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.malformedCount
}

// ProcessFrame feeds one frame to the machine. It returns a completed
// Segment when the frame triggers a voice-offset (natural silence-run
// offset or a max-duration truncation); otherwise ok is false.
func (p *Processor) ProcessFrame(f Frame) (seg Segment, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if f.malformed() {
		p.malformedCount++
		return Segment{}, false
	}

	feat := extractFeatures(f)
	rawVoice := p.isVoice(feat)
	voice := rawVoice
	if p.smoothing {
		voice = p.smoothedDecision(rawVoice)
	}
	if !rawVoice && p.adaptiveThreshold {
		p.noiseFloor = p.noiseFloorAlpha*feat.energy + (1-p.noiseFloorAlpha)*p.noiseFloor
	}

	p.pushPreroll(f)

	switch p.state {
	case StateSilence, StateVoiceOnset:
		return p.handleWaitingForOnset(f, voice)
	case StateVoiceActive:
		return p.handleActive(f, voice)
	}
	return Segment{}, false
}

// isVoice implements the voice detection predicate: energy >= effective
// threshold AND (not using ZCR, or zcr within [min, max]).
func (p *Processor) isVoice(feat features) bool {
	threshold := p.baseThreshold
	if p.adaptiveThreshold {
		adaptive := p.noiseFloor * p.sensitivity
		if adaptive > threshold {
			threshold = adaptive
		}
	}
	if feat.energy < threshold {
		return false
	}
	if p.useZCR && (feat.zcr < p.zcrMin || feat.zcr > p.zcrMax) {
		return false
	}
	return true
}

// smoothedDecision implements the 5-frame sliding-window majority vote with
// >=60% agreement.
func (p *Processor) smoothedDecision(raw bool) bool {
	p.smoothWindow = append(p.smoothWindow, raw)
	if len(p.smoothWindow) > smoothingWindowSize {
		p.smoothWindow = p.smoothWindow[len(p.smoothWindow)-smoothingWindowSize:]
	}
	positives := 0
	for _, v := range p.smoothWindow {
		if v {
			positives++
		}
	}
	return float64(positives)/float64(len(p.smoothWindow)) >= smoothingAgreementFraction
}

func (p *Processor) pushPreroll(f Frame) {
	p.preroll = append(p.preroll, f)
	if over := len(p.preroll) - p.bufferSizeFrames; over > 0 {
		p.preroll = p.preroll[over:]
		p.dropSink.FrameDropped("preroll_buffer_overflow")
	}
}

func (p *Processor) handleWaitingForOnset(f Frame, voice bool) (Segment, bool) {
	if !voice {
		p.positiveStreak = 0
		p.state = StateSilence
		return Segment{}, false
	}

	p.positiveStreak++
	if p.positiveStreak < p.voiceFramesRequired {
		p.state = StateVoiceOnset
		return Segment{}, false
	}

	// Onset confirmed: backfill the segment with the onset-triggering run,
	// inclusive, from the preroll buffer.
	p.state = StateVoiceActive
	p.negativeStreak = 0
	n := p.voiceFramesRequired
	if n > len(p.preroll) {
		n = len(p.preroll)
	}
	p.segment = append([]Frame(nil), p.preroll[len(p.preroll)-n:]...)
	p.segmentStarted = p.segment[0].Timestamp
	return Segment{}, false
}

// handleActive appends f to the in-progress segment. A finished segment is
// inclusive of the onset-triggering frames and one trailing tail frame: only
// the first silent frame of a trailing run is
// kept, while negativeStreak still counts every silent frame so the
// offset-confirmation hysteresis (silence_frames_required) is unaffected.
func (p *Processor) handleActive(f Frame, voice bool) (Segment, bool) {
	if voice {
		p.negativeStreak = 0
		p.segment = append(p.segment, f)
	} else {
		p.negativeStreak++
		if p.negativeStreak == 1 {
			p.segment = append(p.segment, f)
		}
	}

	duration := f.Timestamp.Sub(p.segmentStarted)
	if duration >= p.maxSegmentDuration {
		return p.finalizeSegment(f.Timestamp, true), true
	}

	if p.negativeStreak >= p.silenceFramesRequired {
		return p.finalizeSegment(f.Timestamp, false), true
	}

	return Segment{}, false
}

// finalizeSegment emits the accumulated segment and resets to SILENCE. Must
// be called with p.mu held.
func (p *Processor) finalizeSegment(endedAt time.Time, truncated bool) Segment {
	p.state = StateVoiceEnded
	seg := Segment{
		Frames:    p.segment,
		StartedAt: p.segmentStarted,
		EndedAt:   endedAt,
		Truncated: truncated,
	}
	p.segment = nil
	p.positiveStreak = 0
	p.negativeStreak = 0
	p.state = StateSilence
	return seg
}

// ProcessStream lazily transforms frames into segments, honoring ctx
// cancellation. The returned channel is closed once frames is drained or
// ctx is done.
func (p *Processor) ProcessStream(ctx context.Context, frames <-chan Frame) <-chan Segment {
	out := make(chan Segment)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-frames:
				if !ok {
					return
				}
				if seg, got := p.ProcessFrame(f); got {
					select {
					case out <- seg:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out
}
