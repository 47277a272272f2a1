package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/voxrun/assistant/pkg/provider/embeddings"
	"github.com/voxrun/assistant/pkg/provider/llm"
	"github.com/voxrun/assistant/pkg/provider/stt"
	"github.com/voxrun/assistant/pkg/provider/tts"
	"github.com/voxrun/assistant/pkg/provider/wakeword"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// capability kind. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	asr        map[string]func(ProviderEntry) (stt.Provider, error)
	tts        map[string]func(ProviderEntry) (tts.Provider, error)
	llm        map[string]func(ProviderEntry) (llm.Provider, error)
	wakeWord   map[string]func(ProviderEntry) (wakeword.Engine, error)
	embeddings map[string]func(ProviderEntry) (embeddings.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		asr:        make(map[string]func(ProviderEntry) (stt.Provider, error)),
		tts:        make(map[string]func(ProviderEntry) (tts.Provider, error)),
		llm:        make(map[string]func(ProviderEntry) (llm.Provider, error)),
		wakeWord:   make(map[string]func(ProviderEntry) (wakeword.Engine, error)),
		embeddings: make(map[string]func(ProviderEntry) (embeddings.Provider, error)),
	}
}

// RegisterASR registers an ASR provider factory under name.
func (r *Registry) RegisterASR(name string, factory func(ProviderEntry) (stt.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// RegisterTTS registers a TTS provider factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterLLM registers an LLM provider factory under name.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterWakeWord registers a wake-word engine factory under name.
func (r *Registry) RegisterWakeWord(name string, factory func(ProviderEntry) (wakeword.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wakeWord[name] = factory
}

// RegisterEmbeddings registers an embeddings provider factory under name.
func (r *Registry) RegisterEmbeddings(name string, factory func(ProviderEntry) (embeddings.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddings[name] = factory
}

// CreateASR instantiates an ASR provider using the factory registered under name.
func (r *Registry) CreateASR(name string, entry ProviderEntry) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.asr[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrProviderNotRegistered, name)
	}
	return factory(entry)
}

// CreateTTS instantiates a TTS provider using the factory registered under name.
func (r *Registry) CreateTTS(name string, entry ProviderEntry) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.tts[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, name)
	}
	return factory(entry)
}

// CreateLLM instantiates an LLM provider using the factory registered under name.
func (r *Registry) CreateLLM(name string, entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, name)
	}
	return factory(entry)
}

// CreateWakeWord instantiates a wake-word engine using the factory registered under name.
func (r *Registry) CreateWakeWord(name string, entry ProviderEntry) (wakeword.Engine, error) {
	r.mu.RLock()
	factory, ok := r.wakeWord[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: wake_word/%q", ErrProviderNotRegistered, name)
	}
	return factory(entry)
}

// CreateEmbeddings instantiates an embeddings provider using the factory registered under name.
func (r *Registry) CreateEmbeddings(name string, entry ProviderEntry) (embeddings.Provider, error) {
	r.mu.RLock()
	factory, ok := r.embeddings[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embeddings/%q", ErrProviderNotRegistered, name)
	}
	return factory(entry)
}

// CreateASRWithFallback tries pc's default provider first, falling back
// through FallbackProviders in order until one construction succeeds.
// An empty FallbackProviders list means "fail if the default is
// unavailable,"
func (r *Registry) CreateASRWithFallback(pc ProviderKindConfig) (stt.Provider, error) {
	return withFallback(pc, r.CreateASR)
}

// CreateTTSWithFallback is CreateASRWithFallback for the tts provider kind.
func (r *Registry) CreateTTSWithFallback(pc ProviderKindConfig) (tts.Provider, error) {
	return withFallback(pc, r.CreateTTS)
}

// CreateLLMWithFallback is CreateASRWithFallback for the llm provider kind.
func (r *Registry) CreateLLMWithFallback(pc ProviderKindConfig) (llm.Provider, error) {
	return withFallback(pc, r.CreateLLM)
}

// CreateWakeWordWithFallback is CreateASRWithFallback for the wake_word
// provider kind.
func (r *Registry) CreateWakeWordWithFallback(pc ProviderKindConfig) (wakeword.Engine, error) {
	return withFallback(pc, r.CreateWakeWord)
}

// CreateEmbeddingsWithFallback is CreateASRWithFallback for the embeddings
// provider kind.
func (r *Registry) CreateEmbeddingsWithFallback(pc ProviderKindConfig) (embeddings.Provider, error) {
	return withFallback(pc, r.CreateEmbeddings)
}

// withFallback tries pc.Default then each of pc.FallbackProviders in order,
// via create, returning the first success or the last error encountered.
func withFallback[T any](pc ProviderKindConfig, create func(name string, entry ProviderEntry) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for _, name := range append([]string{pc.Default}, pc.FallbackProviders...) {
		if name == "" {
			continue
		}
		v, err := create(name, pc.Entries[name])
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no provider configured", ErrProviderNotRegistered)
	}
	return zero, lastErr
}
