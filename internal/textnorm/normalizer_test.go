package textnorm

import (
	"testing"

	"github.com/voxrun/assistant/internal/session"
)

func newCtx(t *testing.T, lang string) *session.UnifiedContext {
	t.Helper()
	mgr := session.NewManager(session.ManagerConfig{})
	sctx := mgr.GetOrCreate("room-1")
	sctx.SetLanguage(lang)
	return sctx
}

func TestNormalizeNilContextUsesDefaultLanguage(t *testing.T) {
	got := Normalize("сто двадцать три", nil, StageNumbers)
	if got != "123" {
		t.Fatalf("got %q, want 123 under the default language", got)
	}
}

func TestNormalizeGeneralComposesNumbersAndCleanup(t *testing.T) {
	sctx := newCtx(t, "ru")
	got := Normalize("поставь сто двадцать три!!!", sctx, StageGeneral)
	want := "поставь 123"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeTTSInputComposesAllThreeLegs(t *testing.T) {
	sctx := newCtx(t, "ru")
	got := Normalize("до ста рублей, и т.д.", sctx, StageTTSInput)
	want := "до ста рублей и так далее"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeASROutputOnlyCanonicalizesNumbers(t *testing.T) {
	sctx := newCtx(t, "en")
	got := Normalize("twenty five!!!", sctx, StageASROutput)
	want := "25"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeStagesAreIdempotent(t *testing.T) {
	sctx := newCtx(t, "ru")
	for _, stage := range []Stage{StageASROutput, StageGeneral, StageTTSInput, StageNumbers} {
		once := Normalize("купи сто рублей, т.д. café!!!", sctx, stage)
		twice := Normalize(once, sctx, stage)
		if once != twice {
			t.Fatalf("stage %v not idempotent: %q then %q", stage, once, twice)
		}
	}
}

func TestParseStageRoundTrips(t *testing.T) {
	for _, s := range []Stage{StageASROutput, StageGeneral, StageTTSInput, StageNumbers} {
		if ParseStage(s.String()) != s {
			t.Fatalf("ParseStage(%q) did not round-trip", s.String())
		}
	}
}

func TestParseStageUnknownFallsBackToGeneral(t *testing.T) {
	if ParseStage("bogus") != StageGeneral {
		t.Fatal("expected unknown stage name to fall back to general")
	}
}
