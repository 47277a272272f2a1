package config_test

import (
	"strings"
	"testing"

	"github.com/voxrun/assistant/internal/config"
)

func TestValidate_TTSRequiresAudio(t *testing.T) {
	t.Parallel()
	yaml := `
components:
  enabled: [tts, asr]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for tts without audio")
	}
	if !strings.Contains(err.Error(), "audio") {
		t.Errorf("error should mention audio, got: %v", err)
	}
}

func TestValidate_TTSWithAudioIsValid(t *testing.T) {
	t.Parallel()
	yaml := `
components:
  enabled: [tts, audio]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_WorkflowDefaultMustBeEnabled(t *testing.T) {
	t.Parallel()
	yaml := `
workflows:
  enabled: [alpha]
  default: beta
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error when default workflow is not enabled")
	}
	if !strings.Contains(err.Error(), "workflows.default") {
		t.Errorf("error should mention workflows.default, got: %v", err)
	}
}

func TestValidate_WorkflowDefaultEnabledIsValid(t *testing.T) {
	t.Parallel()
	yaml := `
workflows:
  enabled: [alpha, beta]
  default: beta
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MultipleErrorsAreJoined(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: extremely-verbose
components:
  enabled: [tts]
workflows:
  enabled: [alpha]
  default: beta
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") {
		t.Errorf("error should mention log_level, got: %v", errStr)
	}
	if !strings.Contains(errStr, "audio") {
		t.Errorf("error should mention audio, got: %v", errStr)
	}
	if !strings.Contains(errStr, "workflows.default") {
		t.Errorf("error should mention workflows.default, got: %v", errStr)
	}
}

func TestValidate_TempAudioDirDefaultedWhenMissing(t *testing.T) {
	t.Parallel()
	yaml := `
components:
  enabled: [tts, audio]
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.TempAudioDir == "" {
		t.Error("expected storage.temp_audio_dir to be defaulted, got empty string")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
