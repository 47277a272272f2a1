package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// keywordMatcherPlugin is the NLU cascade stage required to be present in
// every configuration, auto-prepended if the document omits it.
const keywordMatcherPlugin = "keyword_matcher"

// Load reads the YAML configuration file at path and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, normalizes it, and validates
// the result. Useful in tests where configs are constructed from string
// literals. Unrecognized fields are rejected rather than silently ignored,
//
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize applies document-wide defaulting rules that are not simple
// zero-value substitution, in place.
func normalize(cfg *Config) {
	if !slices.Contains(cfg.NLU.EnabledPlugins, keywordMatcherPlugin) {
		cfg.NLU.EnabledPlugins = append([]string{keywordMatcherPlugin}, cfg.NLU.EnabledPlugins...)
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all fatal validation failures found; non-fatal
// concerns are logged as warnings and do not contribute to the error.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// TTS enabled without audio output is fatal.
	if cfg.Components.IsEnabled(ComponentTTS) && !cfg.Components.IsEnabled(ComponentAudio) {
		errs = append(errs, fmt.Errorf("components: tts is enabled but audio (output) is not"))
	}

	// NLU enabled without any plugin other than fallback is a warning.
	if cfg.Components.IsEnabled(ComponentNLU) && !cfg.NLU.HasNonFallbackPlugin() {
		slog.Warn("nlu is enabled but no cascade plugin besides fallback is configured; recognition quality will be limited")
	}

	// Default workflow not in workflows.enabled is fatal.
	if cfg.Workflows.Default != "" && !slices.Contains(cfg.Workflows.Enabled, cfg.Workflows.Default) {
		errs = append(errs, fmt.Errorf("workflows.default %q is not present in workflows.enabled", cfg.Workflows.Default))
	}

	// TTS+audio enabled but no temp directory configured for synthesized
	// clips is not fatal: the system temp directory is used instead, with a
	// warning, since the pipeline orchestrator needs a scratch path for every
	// spoken response.
	if cfg.Components.IsEnabled(ComponentTTS) && cfg.Components.IsEnabled(ComponentAudio) && cfg.Storage.TempAudioDir == "" {
		cfg.Storage.TempAudioDir = os.TempDir()
		slog.Warn("storage.temp_audio_dir is unset; defaulting to the system temp directory", "dir", cfg.Storage.TempAudioDir)
	}

	validateProviderKind("asr", cfg.Providers.ASR)
	validateProviderKind("tts", cfg.Providers.TTS)
	validateProviderKind("llm", cfg.Providers.LLM)
	validateProviderKind("wake_word", cfg.Providers.WakeWord)
	validateProviderKind("embeddings", cfg.Providers.Embed)

	return errors.Join(errs...)
}

// validateProviderKind warns when kind is enabled but names a default
// provider with no matching entry, or names a fallback provider that is
// never configured.
func validateProviderKind(kind string, pc ProviderKindConfig) {
	if !pc.Enabled {
		return
	}
	if pc.Default == "" {
		slog.Warn("provider kind enabled but no default selected", "kind", kind)
		return
	}
	if _, ok := pc.Entries[pc.Default]; !ok && len(pc.Entries) > 0 {
		slog.Warn("provider default has no matching entry block", "kind", kind, "name", pc.Default)
	}
	for _, fb := range pc.FallbackProviders {
		if _, ok := pc.Entries[fb]; !ok && len(pc.Entries) > 0 {
			slog.Warn("provider fallback has no matching entry block", "kind", kind, "name", fb)
		}
	}
}
