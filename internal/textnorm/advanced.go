package textnorm

import "strings"

// abbreviationTables expands common written abbreviations into the words a
// synthesizer should actually speak. Deliberately small and conservative:
// an abbreviation only appears here when its expansion is unambiguous
// without deeper grammatical analysis. Matched before symbol cleanup runs,
// since cleanup would otherwise collapse the punctuation these keys rely on.
var abbreviationTables = map[string]map[string]string{
	"ru": {
		"т.д.": "так далее",
		"т.е.": "то есть",
		"т.п.": "тому подобное",
		"руб.": "рублей",
		"кг.":  "килограмм",
		"см.":  "сантиметров",
	},
	"en": {
		"etc.": "et cetera",
		"e.g.": "for example",
		"i.e.": "that is",
		"mr.":  "mister",
		"mrs.": "missus",
		"dr.":  "doctor",
	},
}

// normalizeAdvanced implements tts_input's extra leg beyond general:
// expand abbreviations the synthesizer would otherwise mispronounce.
func normalizeAdvanced(text, lang string) string {
	table := abbreviationTables[baseLang(lang)]
	if len(table) == 0 {
		return text
	}
	words := strings.Fields(text)
	for i, w := range words {
		if exp, ok := table[strings.ToLower(w)]; ok {
			words[i] = exp
		}
	}
	return strings.Join(words, " ")
}
