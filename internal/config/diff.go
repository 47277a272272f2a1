package config

import "slices"

// ConfigDiff describes what changed between two configs. Only fields that
// can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged     bool
	NewLogLevel         LogLevel
	NLUPluginsChanged   bool
	NewNLUPlugins       []string
	ProviderDefaultsChanged []ProviderDiff
}

// ProviderDiff describes a changed default selection for one provider kind.
// Changes to the fallback list are not reported.
type ProviderDiff struct {
	Kind       string
	OldDefault string
	NewDefault string
}

// Diff compares old and new configs and returns what changed. Only tracks
// changes that are safe to apply without a process restart — provider
// credential/option changes and component enable/disable toggles require a
// restart and are intentionally not diffed here.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.NLU.EnabledPlugins, new.NLU.EnabledPlugins) {
		d.NLUPluginsChanged = true
		d.NewNLUPlugins = new.NLU.EnabledPlugins
	}

	for _, kind := range []string{"asr", "tts", "llm", "wake_word", "embeddings"} {
		oldPC := providerKindByName(old.Providers, kind)
		newPC := providerKindByName(new.Providers, kind)
		if oldPC.Default != newPC.Default {
			d.ProviderDefaultsChanged = append(d.ProviderDefaultsChanged, ProviderDiff{
				Kind: kind, OldDefault: oldPC.Default, NewDefault: newPC.Default,
			})
		}
	}

	return d
}

func providerKindByName(p ProvidersConfig, kind string) ProviderKindConfig {
	switch kind {
	case "asr":
		return p.ASR
	case "tts":
		return p.TTS
	case "llm":
		return p.LLM
	case "wake_word":
		return p.WakeWord
	case "embeddings":
		return p.Embed
	default:
		return ProviderKindConfig{}
	}
}
