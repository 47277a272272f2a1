// Package pipeline implements the orchestrator that threads a request
// through VAD → wake-word → ASR → TextNormalizer → NLU → IntentOrchestrator
// → TTS, or enters directly at TextNormalizer for text input.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voxrun/assistant/internal/apperr"
	"github.com/voxrun/assistant/internal/audio"
	"github.com/voxrun/assistant/internal/nlu"
	"github.com/voxrun/assistant/internal/session"
	"github.com/voxrun/assistant/internal/textnorm"
)

// Recognizer is the NLU seam the orchestrator dispatches normalized text to.
// *nlu.Cascade satisfies this.
type Recognizer interface {
	Recognize(ctx context.Context, text string, sctx *session.UnifiedContext) (nlu.Intent, error)
}

// Executor is the intent-dispatch seam. *intent.IntentOrchestrator satisfies
// this.
type Executor interface {
	Execute(ctx context.Context, in nlu.Intent, sctx *session.UnifiedContext) (nlu.IntentResult, error)
}

// Config wires the orchestrator's dependencies. ContextManager, ASR, NLU and
// Intents are mandatory; WakeWord, TTS and AudioOut are optional but TTS
// without AudioOut is a configuration error.
type Config struct {
	ContextManager *session.ContextManager
	WakeWord       WakeWordDetector
	ASR            Transcriber
	NLU            Recognizer
	Intents        Executor
	TTS            Synthesizer
	AudioOut       AudioOutput

	// VADOptions tunes the per-stream audio.Processor; a fresh Processor is
	// built for every RunAudioStream call so concurrent streams never share
	// VAD state.
	VADOptions []audio.Option

	// TempDir is where synthesized audio is staged before playback. Defaults
	// to os.TempDir().
	TempDir string

	// EntityMatcher, when set, enables phonetic entity correction on raw ASR
	// output ahead of NLU recognition.
	// *phonetic.Matcher satisfies this directly.
	EntityMatcher textnorm.EntityMatcher

	// KnownEntities supplies the vocabulary EntityMatcher corrects against,
	// re-read on every segment so donation reloads take effect without
	// restarting the orchestrator. A typical value is
	// donationRegistry.Current().KnownEntityValues. Ignored when
	// EntityMatcher is nil.
	KnownEntities func() []string
}

// Orchestrator is the assembled PipelineOrchestrator. It holds no per-request
// mutable state; everything that varies across a single request (VAD state,
// wake-word latch) is local to the call that handles that request.
type Orchestrator struct {
	contextManager *session.ContextManager
	wakeWord       WakeWordDetector
	asr            Transcriber
	nlu            Recognizer
	intents        Executor
	tts            Synthesizer
	audioOut       AudioOutput
	vadOptions     []audio.Option
	tempDir        string
	entityMatcher  textnorm.EntityMatcher
	knownEntities  func() []string
}

// New validates cfg and constructs an Orchestrator. Returns
// apperr.ErrConfigValidation if a mandatory dependency is missing or if TTS
// is configured without AudioOut.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.ContextManager == nil:
		return nil, apperr.New(apperr.ErrConfigValidation, "pipeline: context manager is required")
	case cfg.ASR == nil:
		return nil, apperr.New(apperr.ErrConfigValidation, "pipeline: ASR transcriber is required")
	case cfg.NLU == nil:
		return nil, apperr.New(apperr.ErrConfigValidation, "pipeline: NLU recognizer is required")
	case cfg.Intents == nil:
		return nil, apperr.New(apperr.ErrConfigValidation, "pipeline: intent executor is required")
	case cfg.TTS != nil && cfg.AudioOut == nil:
		return nil, apperr.New(apperr.ErrConfigValidation, "pipeline: TTS enabled without an audio output")
	}

	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return &Orchestrator{
		contextManager: cfg.ContextManager,
		wakeWord:       cfg.WakeWord,
		asr:            cfg.ASR,
		nlu:            cfg.NLU,
		intents:        cfg.Intents,
		tts:            cfg.TTS,
		audioOut:       cfg.AudioOut,
		vadOptions:     cfg.VADOptions,
		tempDir:        tempDir,
		entityMatcher:  cfg.EntityMatcher,
		knownEntities:  cfg.KnownEntities,
	}, nil
}

// RunText enters the pipeline at TextNormalizer, skipping VAD/wake-word/ASR
//.
func (o *Orchestrator) RunText(ctx context.Context, req session.RequestContext, text string) (nlu.IntentResult, error) {
	sctx := o.contextManager.GetWithRequestInfo(req)
	return o.handleText(ctx, sctx, text)
}

// RunAudioStream feeds frames through AudioProcessor, optionally gates each
// detected voice segment on the wake word, and executes a command per
// segment once woken. It runs until frames is closed or ctx is cancelled and
// returns every IntentResult produced along the way.
//
// skip_wake_word is read once from req at entry, fixing the stream's
// per-request "entry mode" for its whole lifetime.
func (o *Orchestrator) RunAudioStream(ctx context.Context, req session.RequestContext, frames <-chan audio.Frame) ([]nlu.IntentResult, error) {
	sctx := o.contextManager.GetWithRequestInfo(req)

	proc := audio.NewProcessor(o.vadOptions...)
	segments := proc.ProcessStream(ctx, frames)

	wakeDetected := req.SkipWakeWord
	var results []nlu.IntentResult

	for seg := range segments {
		if !req.SkipWakeWord && !wakeDetected {
			detected, err := o.detectWakeWord(ctx, seg)
			if err != nil {
				slog.Warn("pipeline: wake word detection failed", "session_id", sctx.SessionID(), "err", err)
				continue
			}
			if !detected {
				continue
			}
			wakeDetected = true
			continue // the next segment is the command
		}

		result, handled, err := o.handleSegment(ctx, seg, sctx)
		if err != nil {
			slog.Warn("pipeline: segment processing failed", "session_id", sctx.SessionID(), "err", err)
			continue
		}
		if !handled {
			// Empty transcript:, wait for the next segment
			// without dropping the wake-word latch.
			continue
		}
		results = append(results, result)
		wakeDetected = false
	}

	return results, nil
}

func (o *Orchestrator) detectWakeWord(ctx context.Context, seg audio.Segment) (bool, error) {
	if o.wakeWord == nil {
		return false, apperr.New(apperr.ErrDependencyUnavailable, "pipeline: wake word detector not configured")
	}
	r, err := o.wakeWord.Detect(ctx, seg)
	if err != nil {
		return false, err
	}
	return r.Detected, nil
}

// handleSegment transcribes one voice segment and runs it through the text
// pipeline. handled is false when the transcript was empty, signalling the
// caller to advance without recording history or resetting wake state.
func (o *Orchestrator) handleSegment(ctx context.Context, seg audio.Segment, sctx *session.UnifiedContext) (result nlu.IntentResult, handled bool, err error) {
	text, err := o.asr.Transcribe(ctx, seg, sctx)
	if err != nil {
		return nlu.IntentResult{}, false, fmt.Errorf("pipeline: transcribe: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nlu.IntentResult{}, false, nil
	}

	var normOpts []textnorm.Option
	if o.entityMatcher != nil && o.knownEntities != nil {
		normOpts = append(normOpts, textnorm.WithEntityCorrection(o.entityMatcher, o.knownEntities()))
	}
	normalized := textnorm.Normalize(text, sctx, textnorm.StageASROutput, normOpts...)
	result, err = o.dispatch(ctx, normalized, sctx)
	if err != nil {
		return nlu.IntentResult{}, false, err
	}
	return result, true, nil
}

// handleText runs the general-normalize → NLU → intent → speak leg for
// RunText. The audio path's handleSegment does not go through it: it applies
// the asr_output stage and calls dispatch directly.
func (o *Orchestrator) handleText(ctx context.Context, sctx *session.UnifiedContext, text string) (nlu.IntentResult, error) {
	normalized := textnorm.Normalize(text, sctx, textnorm.StageGeneral)
	return o.dispatch(ctx, normalized, sctx)
}

// dispatch recognizes an already-normalized utterance, executes its intent,
// speaks the response if any, and appends conversation history.
func (o *Orchestrator) dispatch(ctx context.Context, normalizedText string, sctx *session.UnifiedContext) (nlu.IntentResult, error) {
	in, err := o.nlu.Recognize(ctx, normalizedText, sctx)
	if err != nil {
		if errors.Is(err, apperr.ErrParameterExtraction) {
			result := clarificationResult(in)
			sctx.SetConversationState(session.StateClarifying)
			if err := o.speak(ctx, result.Text, sctx); err != nil {
				slog.Warn("pipeline: speak failed", "session_id", sctx.SessionID(), "err", err)
			}
			sctx.AppendHistory(normalizedText, result.Text, in.Name, time.Now())
			return result, nil
		}
		return nlu.IntentResult{}, fmt.Errorf("pipeline: recognize: %w", err)
	}

	if sctx.ConversationState() == session.StateClarifying {
		sctx.SetConversationState(session.StateConversing)
	}

	result, err := o.intents.Execute(ctx, in, sctx)
	if err != nil {
		return nlu.IntentResult{}, fmt.Errorf("pipeline: execute: %w", err)
	}

	if result.ShouldSpeak && result.Text != "" {
		if err := o.speak(ctx, result.Text, sctx); err != nil {
			slog.Warn("pipeline: speak failed", "session_id", sctx.SessionID(), "err", err)
		}
	}

	sctx.AppendHistory(normalizedText, result.Text, in.Name, time.Now())
	return result, nil
}

// clarificationResult builds the spoken prompt asking the user to fill in a
// parameter that extraction could not resolve, for an intent that otherwise
// matched a method.
func clarificationResult(in nlu.Intent) nlu.IntentResult {
	return nlu.IntentResult{
		Success:     false,
		ShouldSpeak: true,
		Text:        "I didn't catch all the details for that, could you say it again with the missing part?",
		IntentName:  in.Name,
	}
}

// speak synthesizes text to a fresh UUIDv4-named temp file, plays it, and
// deletes it regardless of playback outcome.
// A nil TTS or AudioOut makes speak a no-op: the handler already decided to
// speak, but the deployment may be audio-out-less (text-only transport).
func (o *Orchestrator) speak(ctx context.Context, text string, sctx *session.UnifiedContext) error {
	if o.tts == nil || o.audioOut == nil {
		return nil
	}

	path := filepath.Join(o.tempDir, uuid.NewString()+".wav")
	if err := o.tts.SynthesizeToFile(ctx, text, sctx, path); err != nil {
		return fmt.Errorf("pipeline: synthesize: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Warn("pipeline: failed to remove synthesized temp file", "path", path, "err", rmErr)
		}
	}()

	return o.audioOut.Play(ctx, path)
}
