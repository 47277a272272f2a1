package textnorm

import "testing"

func TestNormalizeNumbersRussianCompound(t *testing.T) {
	got := normalizeNumbers("поставь таймер на сто двадцать три минуты", "ru")
	want := "поставь таймер на 123 минуты"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeNumbersRussianThousands(t *testing.T) {
	got := normalizeNumbers("две тысячи три", "ru")
	if got != "2003" {
		t.Fatalf("got %q, want 2003", got)
	}
}

func TestNormalizeNumbersEnglishCompound(t *testing.T) {
	got := normalizeNumbers("set a timer for twenty five minutes", "en")
	want := "set a timer for 25 minutes"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeNumbersUnknownLanguagePassesThrough(t *testing.T) {
	in := "vingt-cinq minutes"
	if got := normalizeNumbers(in, "fr"); got != in {
		t.Fatalf("expected passthrough for unmapped language, got %q", got)
	}
}

func TestNormalizeNumbersIsIdempotent(t *testing.T) {
	once := normalizeNumbers("сто двадцать три", "ru")
	twice := normalizeNumbers(once, "ru")
	if once != twice {
		t.Fatalf("expected idempotency, got %q then %q", once, twice)
	}
}

func TestNormalizeNumbersLeavesNonNumberTokensAlone(t *testing.T) {
	got := normalizeNumbers("включи свет", "ru")
	if got != "включи свет" {
		t.Fatalf("got %q", got)
	}
}
