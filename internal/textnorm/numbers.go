package textnorm

import (
	"strconv"
	"strings"
)

// numberWords maps a language tag to its cardinal-number vocabulary. Scales
// multiply and reset the running value the way "hundred"/"thousand" do in
// English; units and teens/tens add to it. Only the languages the runtime
// actually serves are tabulated; unlisted languages pass through untouched.
type numberWords struct {
	units  map[string]int // 0-19
	tens   map[string]int // 20, 30, ... 90
	scales map[string]int // 100, 1000, 1000000, ...
}

var numberTables = map[string]numberWords{
	"ru": {
		units: map[string]int{
			"ноль": 0, "один": 1, "одна": 1, "два": 2, "две": 2, "три": 3,
			"четыре": 4, "пять": 5, "шесть": 6, "семь": 7, "восемь": 8,
			"девять": 9, "десять": 10, "одиннадцать": 11, "двенадцать": 12,
			"тринадцать": 13, "четырнадцать": 14, "пятнадцать": 15,
			"шестнадцать": 16, "семнадцать": 17, "восемнадцать": 18,
			"девятнадцать": 19,
		},
		tens: map[string]int{
			"двадцать": 20, "тридцать": 30, "сорок": 40, "пятьдесят": 50,
			"шестьдесят": 60, "семьдесят": 70, "восемьдесят": 80, "девяносто": 90,
		},
		scales: map[string]int{
			"сто": 100, "двести": 200, "триста": 300, "четыреста": 400,
			"пятьсот": 500, "шестьсот": 600, "семьсот": 700, "восемьсот": 800,
			"девятьсот": 900,
			"тысяча": 1000, "тысячи": 1000, "тысяч": 1000,
			"миллион": 1000000, "миллиона": 1000000, "миллионов": 1000000,
		},
	},
	"en": {
		units: map[string]int{
			"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
			"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
			"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
			"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18,
			"nineteen": 19,
		},
		tens: map[string]int{
			"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50, "sixty": 60,
			"seventy": 70, "eighty": 80, "ninety": 90,
		},
		scales: map[string]int{
			"hundred": 100, "thousand": 1000, "million": 1000000,
		},
	},
}

// digitWords maps a language to the spoken forms of the values 0-10. No
// pipeline in this package reads it: every stage converts number words to
// digits only.
var digitWords = map[string]map[int]string{
	"ru": {
		0: "ноль", 1: "один", 2: "два", 3: "три", 4: "четыре", 5: "пять",
		6: "шесть", 7: "семь", 8: "восемь", 9: "девять", 10: "десять",
	},
	"en": {
		0: "zero", 1: "one", 2: "two", 3: "three", 4: "four", 5: "five",
		6: "six", 7: "seven", 8: "eight", 9: "nine", 10: "ten",
	},
}

// normalizeNumbers implements the "numbers" pipeline segment: canonicalizes
// runs of number words in text into digit form, language-dependent. Text
// already in digit form passes through unchanged, which is what keeps the
// pipeline idempotent.
func normalizeNumbers(text, lang string) string {
	table, ok := numberTables[baseLang(lang)]
	if !ok {
		return text
	}

	tokens := strings.Fields(text)
	out := make([]string, 0, len(tokens))

	i := 0
	for i < len(tokens) {
		run, consumed := scanNumberRun(tokens, i, table)
		if consumed == 0 {
			out = append(out, tokens[i])
			i++
			continue
		}
		out = append(out, strconv.Itoa(run))
		i += consumed
	}
	return strings.Join(out, " ")
}

// scanNumberRun greedily consumes a maximal run of number words starting at
// tokens[i], accumulating their value the way spoken cardinals compose:
// units/tens add, scales multiply-then-flush. Returns the accumulated value
// and the number of tokens consumed; consumed is 0 if tokens[i] is not a
// number word.
func scanNumberRun(tokens []string, i int, table numberWords) (value int, consumed int) {
	total := 0
	current := 0
	matched := false

	for j := i; j < len(tokens); j++ {
		word := strings.ToLower(strings.Trim(tokens[j], ".,!?"))
		switch {
		case table.units[word] != 0 || word == zeroWordFor(table):
			current += table.units[word]
			matched = true
		case table.tens[word] != 0:
			current += table.tens[word]
			matched = true
		case table.scales[word] != 0:
			scale := table.scales[word]
			if current == 0 {
				current = 1
			}
			if scale >= 1000 {
				total += current * scale
				current = 0
			} else {
				current *= scale
			}
			matched = true
		default:
			if !matched {
				return 0, 0
			}
			return total + current, j - i
		}
	}
	if !matched {
		return 0, 0
	}
	return total + current, len(tokens) - i
}

func zeroWordFor(table numberWords) string {
	for word, v := range table.units {
		if v == 0 {
			return word
		}
	}
	return ""
}

// baseLang strips a region subtag ("ru-RU" -> "ru") so table lookups don't
// need every locale variant enumerated.
func baseLang(lang string) string {
	if idx := strings.IndexAny(lang, "-_"); idx >= 0 {
		return strings.ToLower(lang[:idx])
	}
	return strings.ToLower(lang)
}
