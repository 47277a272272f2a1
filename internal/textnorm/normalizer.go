package textnorm

import "github.com/voxrun/assistant/internal/session"

// Normalize runs the pipeline for stage against text, resolving language
// and per-session preferences from sctx. sctx may be nil for callers
// outside a session scope (e.g. warm-up or offline batch tooling), in which
// case session.DefaultLanguage is used.
//
// opts configures optional stages; currently only [WithEntityCorrection],
// which runs during StageASROutput ahead of number canonicalization. Callers
// that pass no opts get the same behavior as before entity correction
// existed.
func Normalize(text string, sctx *session.UnifiedContext, stage Stage, opts ...Option) string {
	lang := session.DefaultLanguage
	if sctx != nil {
		lang = sctx.Language()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	switch stage {
	case StageNumbers:
		return normalizeNumbers(text, lang)
	case StageASROutput:
		corrected := correctEntities(text, o.matcher, o.entities)
		return normalizeNumbers(corrected, lang)
	case StageGeneral:
		return normalizeTransliteration(normalizeNumbers(text, lang))
	case StageTTSInput:
		return normalizeTransliteration(normalizeAdvanced(normalizeNumbers(text, lang), lang))
	default:
		return text
	}
}
