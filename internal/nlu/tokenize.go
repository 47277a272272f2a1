package nlu

import (
	"strings"
	"unicode"

	"github.com/voxrun/assistant/internal/donation"
)

// Tokenize splits normalized text into donation.Token values for the rule
// stage and parameter extraction. No morphological analyzer is wired
// (this runtime's LEMMA/POS constraints are optional per the attribute-match
// DSL): Lemma and POS are left empty, so patterns that constrain on them
// never match until an analyzer is plugged in.
func Tokenize(text string) []donation.Token {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || (isPunct(r) && r != '\'')
	})
	tokens := make([]donation.Token, 0, len(fields))
	for i, f := range fields {
		tokens = append(tokens, donation.Token{
			Text:        f,
			Lower:       strings.ToLower(f),
			LikeNum:     isNumeric(f),
			IsSentStart: i == 0,
			IsAlpha:     isAlpha(f),
		})
	}
	return tokens
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) && r != '\''
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	seenDigit := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			seenDigit = true
		case r == '.' || r == ',' || r == '-':
		default:
			return false
		}
	}
	return seenDigit
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
