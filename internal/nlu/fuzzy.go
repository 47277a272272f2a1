package nlu

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// fuzzyScoreResult is the cached outcome of scoring one normalized input
// against one method's keyword set.
type fuzzyScoreResult struct {
	composite float64
}

// levenshteinRatio converts an edit distance into a rapidfuzz-style
// similarity ratio in [0,1]: 1 - distance / max(len(a), len(b)).
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

// partialRatio approximates rapidfuzz's partial_ratio: the best similarity
// of the shorter string against any equal-length window of the longer one.
func partialRatio(a, b string) float64 {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if short == "" {
		return 0
	}
	if len(long) <= len(short) {
		return levenshteinRatio(short, long)
	}
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		window := long[i : i+len(short)]
		if r := levenshteinRatio(short, window); r > best {
			best = r
		}
	}
	return best
}

// tokenSetRatio approximates rapidfuzz's token_set_ratio: tokens are
// deduplicated and sorted, then the best of three pairings (intersection vs
// intersection+a-only, intersection vs intersection+b-only, and the two
// combined strings against each other) is returned. It is 1.0 when one
// side's tokens are a subset of the other's.
func tokenSetRatio(a, b string) float64 {
	tokensA := uniqueSortedTokens(a)
	tokensB := uniqueSortedTokens(b)

	setA := toSet(tokensA)
	setB := toSet(tokensB)

	var intersection, onlyA, onlyB []string
	for _, t := range tokensA {
		if _, ok := setB[t]; ok {
			intersection = append(intersection, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range tokensB {
		if _, ok := setA[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}

	inter := strings.Join(intersection, " ")
	combinedA := strings.TrimSpace(inter + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(inter + " " + strings.Join(onlyB, " "))

	best := 0.0
	if r := levenshteinRatio(inter, combinedA); r > best {
		best = r
	}
	if r := levenshteinRatio(inter, combinedB); r > best {
		best = r
	}
	if r := levenshteinRatio(combinedA, combinedB); r > best {
		best = r
	}
	return best
}

func uniqueSortedTokens(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	// Simple insertion sort; token lists are short (phrase-sized).
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// compositeScore implements the fuzzy-match composite formula:
//
//	0.5 × max(full-string ratio over keywords)
//	  + 0.3 × avg(partial-ratio per input word)
//	  + 0.2 × max(token-set ratio over keywords)
func compositeScore(input string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	inputLower := strings.ToLower(input)
	inputWords := strings.Fields(inputLower)

	maxFull := 0.0
	maxTokenSet := 0.0
	for _, kw := range keywords {
		kwLower := strings.ToLower(kw)
		if r := levenshteinRatio(inputLower, kwLower); r > maxFull {
			maxFull = r
		}
		if r := tokenSetRatio(inputLower, kwLower); r > maxTokenSet {
			maxTokenSet = r
		}
	}

	avgPartial := 0.0
	if len(inputWords) > 0 {
		sum := 0.0
		for _, w := range inputWords {
			best := 0.0
			for _, kw := range keywords {
				if r := partialRatio(w, strings.ToLower(kw)); r > best {
					best = r
				}
			}
			sum += best
		}
		avgPartial = sum / float64(len(inputWords))
	}

	return 0.5*maxFull + 0.3*avgPartial + 0.2*maxTokenSet
}
