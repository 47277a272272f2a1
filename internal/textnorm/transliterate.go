package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticStripper composes text to NFC, then decomposes only runs of Latin
// letters to NFKD and drops their combining marks, folding accented Latin
// letters ("café" -> "cafe") without touching non-Latin scripts: Cyrillic
// letters such as "й" and "ё" keep their marks.
var diacriticStripper = transform.Chain(norm.NFC, runes.If(runes.In(unicode.Latin),
	transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), nil))

var collapseSpaceRe = regexp.MustCompile(`\s+`)

// symbolCleanupRe strips everything a short imperative voice command has no
// use for: punctuation, emoji, and other decoration. Letters, digits,
// internal apostrophes and hyphens survive.
var symbolCleanupRe = regexp.MustCompile(`[^\p{L}\p{N}\s'-]`)

// normalizeTransliteration runs the "transliteration/symbol cleanup" leg of
// the general and tts_input pipelines: fold diacritics, drop decorative
// symbols, and collapse whitespace. Idempotent — a second pass over already
// stripped text changes nothing since NFKD of already-precomposed text
// followed by NFC round-trips.
func normalizeTransliteration(text string) string {
	stripped, _, err := transform.String(diacriticStripper, text)
	if err != nil {
		stripped = text
	}
	cleaned := symbolCleanupRe.ReplaceAllString(stripped, "")
	return strings.TrimSpace(collapseSpaceRe.ReplaceAllString(cleaned, " "))
}
