package textnorm

import "strings"

// EntityMatcher phonetically aligns a candidate word or n-gram phrase
// against a set of known entity values, returning the canonical form when it
// clears the matcher's similarity floor. [*phonetic.Matcher] (grounded on
// transcript correction's Double-Metaphone/Jaro-Winkler pipeline) satisfies
// this; any implementation with the same contract as
// [transcript.PhoneticMatcher] works.
type EntityMatcher interface {
	Match(candidate string, entities []string) (corrected string, confidence float64, matched bool)
}

// options carries the optional knobs [Normalize] accepts.
type options struct {
	matcher  EntityMatcher
	entities []string
}

// Option configures an optional Normalize stage.
type Option func(*options)

// WithEntityCorrection enables phonetic entity correction in the
// StageASROutput pipeline: every token and token n-gram in the input is
// tested against entities via matcher, and a match is rewritten to its
// canonical form before number canonicalization runs. Has no effect on
// stages other than StageASROutput.
func WithEntityCorrection(matcher EntityMatcher, entities []string) Option {
	return func(o *options) {
		o.matcher = matcher
		o.entities = entities
	}
}

// correctEntities rewrites text by replacing the longest matching n-gram at
// each position with its canonical entity form, per matcher. Unmatched
// tokens pass through unchanged. Mirrors the n-gram windowing used by the
// standalone transcript-correction pipeline.
func correctEntities(text string, matcher EntityMatcher, entities []string) string {
	if matcher == nil || len(entities) == 0 {
		return text
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text
	}

	maxWindow := maxEntityWords(entities)
	if maxWindow == 0 {
		return text
	}

	var out []string
	i := 0
	for i < len(tokens) {
		window := maxWindow
		if i+window > len(tokens) {
			window = len(tokens) - i
		}

		matched := false
		for n := window; n >= 1; n-- {
			candidate := strings.Join(tokens[i:i+n], " ")
			corrected, _, ok := matcher.Match(candidate, entities)
			if !ok {
				continue
			}
			out = append(out, strings.Fields(corrected)...)
			i += n
			matched = true
			break
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}

	return strings.Join(out, " ")
}

func maxEntityWords(entities []string) int {
	max := 1
	for _, e := range entities {
		if n := len(strings.Fields(e)); n > max {
			max = n
		}
	}
	return max
}
