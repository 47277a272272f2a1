package textnorm

import "testing"

func TestNormalizeAdvancedExpandsRussianAbbreviation(t *testing.T) {
	got := normalizeAdvanced("купи молоко и т.д.", "ru")
	want := "купи молоко и так далее"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeAdvancedExpandsEnglishAbbreviation(t *testing.T) {
	got := normalizeAdvanced("ask dr. smith", "en")
	want := "ask doctor smith"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeAdvancedLeavesUnmappedLanguageAlone(t *testing.T) {
	in := "demande au dr. martin"
	if got := normalizeAdvanced(in, "fr"); got != in {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeAdvancedIsIdempotent(t *testing.T) {
	once := normalizeAdvanced("т.д. и руб.", "ru")
	twice := normalizeAdvanced(once, "ru")
	if once != twice {
		t.Fatalf("expected idempotency, got %q then %q", once, twice)
	}
}
