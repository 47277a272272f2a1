package app

import (
	"fmt"

	"github.com/voxrun/assistant/internal/config"
	"github.com/voxrun/assistant/internal/resilience"
	"github.com/voxrun/assistant/pkg/provider/embeddings"
	embeddingsollama "github.com/voxrun/assistant/pkg/provider/embeddings/ollama"
	embeddingsopenai "github.com/voxrun/assistant/pkg/provider/embeddings/openai"
	"github.com/voxrun/assistant/pkg/provider/llm"
	"github.com/voxrun/assistant/pkg/provider/llm/anyllm"
	llmopenai "github.com/voxrun/assistant/pkg/provider/llm/openai"
	"github.com/voxrun/assistant/pkg/provider/stt"
	"github.com/voxrun/assistant/pkg/provider/stt/deepgram"
	"github.com/voxrun/assistant/pkg/provider/stt/whisper"
	"github.com/voxrun/assistant/pkg/provider/tts"
	"github.com/voxrun/assistant/pkg/provider/tts/coqui"
	"github.com/voxrun/assistant/pkg/provider/tts/elevenlabs"
	"github.com/voxrun/assistant/pkg/provider/wakeword"
)

// Providers lets callers (tests, alternate entry points) supply already
// constructed capability providers, bypassing config.Registry entirely. A
// nil field falls back to building from cfg.Providers via the registered
// factories.
type Providers struct {
	ASR        stt.Provider
	TTS        tts.Provider
	LLM        llm.Provider
	WakeWord   wakeword.Engine
	Embeddings embeddings.Provider
}

// registerBuiltinProviders wires every concrete provider package this
// runtime ships with into reg, under the name operators select via
// providers.<kind>.default / fallback_providers in configuration.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterASR("whisper-http", func(e config.ProviderEntry) (stt.Provider, error) {
		return whisper.New(e.BaseURL)
	})
	reg.RegisterASR("whisper-native", func(e config.ProviderEntry) (stt.Provider, error) {
		return whisper.NewNative(e.Model)
	})
	reg.RegisterASR("deepgram", func(e config.ProviderEntry) (stt.Provider, error) {
		return deepgram.New(e.APIKey)
	})

	reg.RegisterTTS("elevenlabs", func(e config.ProviderEntry) (tts.Provider, error) {
		return elevenlabs.New(e.APIKey)
	})
	reg.RegisterTTS("coqui", func(e config.ProviderEntry) (tts.Provider, error) {
		return coqui.New(e.BaseURL)
	})

	reg.RegisterLLM("openai", func(e config.ProviderEntry) (llm.Provider, error) {
		return llmopenai.New(e.APIKey, e.Model)
	})
	reg.RegisterLLM("anthropic", func(e config.ProviderEntry) (llm.Provider, error) {
		return anyllm.NewAnthropic(e.Model)
	})
	reg.RegisterLLM("gemini", func(e config.ProviderEntry) (llm.Provider, error) {
		return anyllm.NewGemini(e.Model)
	})
	reg.RegisterLLM("ollama", func(e config.ProviderEntry) (llm.Provider, error) {
		return anyllm.NewOllama(e.Model)
	})
	reg.RegisterLLM("groq", func(e config.ProviderEntry) (llm.Provider, error) {
		return anyllm.NewGroq(e.Model)
	})

	reg.RegisterEmbeddings("openai", func(e config.ProviderEntry) (embeddings.Provider, error) {
		return embeddingsopenai.New(e.APIKey, e.Model)
	})
	reg.RegisterEmbeddings("ollama", func(e config.ProviderEntry) (embeddings.Provider, error) {
		return embeddingsollama.New(e.BaseURL, e.Model)
	})

	// Wake-word detection has no dedicated provider entry of its own; the
	// phonetic engine is built directly against the already-constructed ASR
	// provider in buildCapabilities, so RegisterWakeWord is left for a future
	// engine that isn't ASR-backed.
}

// capabilities holds the five constructed capability providers a pipeline
// needs, already wrapped in resilience.*Fallback when more than one provider
// name was configured for a kind.
type capabilities struct {
	asr        stt.Provider
	tts        tts.Provider
	llm        llm.Provider
	wakeWord   wakeword.Engine
	embeddings embeddings.Provider
}

// buildCapabilities constructs every enabled capability from cfg, preferring
// an injected value in override for each field. ASR, LLM and TTS are wrapped
// in a resilience fallback group when fallback_providers names more than the
// default so that a mid-session backend failure fails over without tearing
// down the pipeline; embeddings and wake-word fall back only at construction
// time (config.Registry.Create*WithFallback), since they have no resilience
// wrapper of their own.
func buildCapabilities(reg *config.Registry, cfg config.ProvidersConfig, override Providers) (capabilities, error) {
	var caps capabilities
	var err error

	if override.ASR != nil {
		caps.asr = override.ASR
	} else if cfg.ASR.Enabled {
		if caps.asr, err = buildSTT(reg, cfg.ASR); err != nil {
			return capabilities{}, fmt.Errorf("app: asr: %w", err)
		}
	}

	if override.TTS != nil {
		caps.tts = override.TTS
	} else if cfg.TTS.Enabled {
		if caps.tts, err = buildTTS(reg, cfg.TTS); err != nil {
			return capabilities{}, fmt.Errorf("app: tts: %w", err)
		}
	}

	if override.LLM != nil {
		caps.llm = override.LLM
	} else if cfg.LLM.Enabled {
		if caps.llm, err = buildLLM(reg, cfg.LLM); err != nil {
			return capabilities{}, fmt.Errorf("app: llm: %w", err)
		}
	}

	if override.Embeddings != nil {
		caps.embeddings = override.Embeddings
	} else if cfg.Embed.Enabled {
		if caps.embeddings, err = reg.CreateEmbeddingsWithFallback(cfg.Embed); err != nil {
			return capabilities{}, fmt.Errorf("app: embeddings: %w", err)
		}
	}

	if override.WakeWord != nil {
		caps.wakeWord = override.WakeWord
	} else if cfg.WakeWord.Enabled {
		if caps.wakeWord, err = reg.CreateWakeWordWithFallback(cfg.WakeWord); err != nil {
			return capabilities{}, fmt.Errorf("app: wake_word: %w", err)
		}
	}

	return caps, nil
}

func buildSTT(reg *config.Registry, pc config.ProviderKindConfig) (stt.Provider, error) {
	if pc.Default == "" {
		return nil, fmt.Errorf("no default provider configured")
	}
	primary, err := reg.CreateASR(pc.Default, pc.Entries[pc.Default])
	if err != nil {
		return nil, err
	}
	if len(pc.FallbackProviders) == 0 {
		return primary, nil
	}
	group := resilience.NewSTTFallback(primary, pc.Default, resilience.FallbackConfig{})
	for _, name := range pc.FallbackProviders {
		fb, err := reg.CreateASR(name, pc.Entries[name])
		if err != nil {
			return nil, err
		}
		group.AddFallback(name, fb)
	}
	return group, nil
}

func buildTTS(reg *config.Registry, pc config.ProviderKindConfig) (tts.Provider, error) {
	if pc.Default == "" {
		return nil, fmt.Errorf("no default provider configured")
	}
	primary, err := reg.CreateTTS(pc.Default, pc.Entries[pc.Default])
	if err != nil {
		return nil, err
	}
	if len(pc.FallbackProviders) == 0 {
		return primary, nil
	}
	group := resilience.NewTTSFallback(primary, pc.Default, resilience.FallbackConfig{})
	for _, name := range pc.FallbackProviders {
		fb, err := reg.CreateTTS(name, pc.Entries[name])
		if err != nil {
			return nil, err
		}
		group.AddFallback(name, fb)
	}
	return group, nil
}

func buildLLM(reg *config.Registry, pc config.ProviderKindConfig) (llm.Provider, error) {
	if pc.Default == "" {
		return nil, fmt.Errorf("no default provider configured")
	}
	primary, err := reg.CreateLLM(pc.Default, pc.Entries[pc.Default])
	if err != nil {
		return nil, err
	}
	if len(pc.FallbackProviders) == 0 {
		return primary, nil
	}
	group := resilience.NewLLMFallback(primary, pc.Default, resilience.FallbackConfig{})
	for _, name := range pc.FallbackProviders {
		fb, err := reg.CreateLLM(name, pc.Entries[name])
		if err != nil {
			return nil, err
		}
		group.AddFallback(name, fb)
	}
	return group, nil
}
