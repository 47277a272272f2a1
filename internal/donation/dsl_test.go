package donation

import "testing"

func tok(text string) Token {
	return Token{Text: text, Lower: text, Lemma: text, IsAlpha: true}
}

func TestCompileRejectsUnknownKey(t *testing.T) {
	_, err := Compile(TokenPattern{{"BOGUS": "x"}})
	if err == nil {
		t.Fatal("expected error for unrecognized constraint key")
	}
}

func TestMatchLiteralSequence(t *testing.T) {
	cp, err := Compile(TokenPattern{
		{"LOWER": "set"},
		{"LOWER": "a"},
		{"LOWER": "timer"},
	})
	if err != nil {
		t.Fatal(err)
	}
	tokens := []Token{tok("please"), tok("set"), tok("a"), tok("timer"), tok("now")}
	start, end, _, matched := Match(cp, tokens)
	if !matched || start != 1 || end != 4 {
		t.Fatalf("expected match [1,4), got start=%d end=%d matched=%v", start, end, matched)
	}
}

func TestMatchOptionalModifier(t *testing.T) {
	cp, err := Compile(TokenPattern{
		{"LOWER": "turn"},
		{"LOWER": "the", "OP": "?"},
		{"LOWER": "lights"},
	})
	if err != nil {
		t.Fatal(err)
	}

	withThe := []Token{tok("turn"), tok("the"), tok("lights")}
	if _, _, _, matched := Match(cp, withThe); !matched {
		t.Fatal("expected match with optional token present")
	}
	withoutThe := []Token{tok("turn"), tok("lights")}
	if _, _, _, matched := Match(cp, withoutThe); !matched {
		t.Fatal("expected match with optional token absent")
	}
}

func TestMatchPlusModifier(t *testing.T) {
	cp, err := Compile(TokenPattern{
		{"LIKE_NUM": true, "OP": "+"},
		{"LOWER": "minutes"},
	})
	if err != nil {
		t.Fatal(err)
	}
	tokens := []Token{
		{Text: "5", Lower: "5", LikeNum: true},
		{Text: "0", Lower: "0", LikeNum: true},
		tok("minutes"),
	}
	start, end, _, matched := Match(cp, tokens)
	if !matched || start != 0 || end != 3 {
		t.Fatalf("expected greedy plus to consume both numerals, got start=%d end=%d matched=%v", start, end, matched)
	}
}

func TestMatchSlotPatternCapturesText(t *testing.T) {
	raw := TokenPattern{{"LIKE_NUM": true}}
	cp, err := CompileSlot("duration_minutes", raw)
	if err != nil {
		t.Fatal(err)
	}
	tokens := []Token{tok("set"), tok("timer"), {Text: "10", Lower: "10", LikeNum: true}}
	_, _, slotText, matched := Match(cp, tokens)
	if !matched || slotText != "10" {
		t.Fatalf("expected slot text %q, got %q (matched=%v)", "10", slotText, matched)
	}
}

func TestMatchRegexText(t *testing.T) {
	cp, err := Compile(TokenPattern{
		{"TEXT": map[string]any{"REGEX": `^\d+$`}},
	})
	if err != nil {
		t.Fatal(err)
	}
	tokens := []Token{tok("abc"), {Text: "42", Lower: "42"}}
	_, end, _, matched := Match(cp, tokens)
	if !matched || end != 2 {
		t.Fatalf("expected regex constraint to match numeric token, matched=%v end=%d", matched, end)
	}
}

func TestMatchNoMatch(t *testing.T) {
	cp, err := Compile(TokenPattern{{"LOWER": "stop"}})
	if err != nil {
		t.Fatal(err)
	}
	tokens := []Token{tok("play"), tok("music")}
	if _, _, _, matched := Match(cp, tokens); matched {
		t.Fatal("expected no match")
	}
}
