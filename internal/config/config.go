// Package config provides the configuration schema, loader, and provider
// registry for the assistant runtime.
package config

import (
	"time"

	"github.com/voxrun/assistant/internal/fireforget"
)

// LogLevel controls log verbosity. Valid values: "debug", "info", "warn", "error".
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is one of the recognized log levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// Config is the root configuration structure for the assistant runtime.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Components ComponentsConfig `yaml:"components"`
	Workflows  WorkflowsConfig  `yaml:"workflows"`
	Providers  ProvidersConfig  `yaml:"providers"`
	NLU        NLUConfig        `yaml:"nlu"`
	Intents    IntentsConfig    `yaml:"intents"`
	Storage    StorageConfig    `yaml:"storage"`
	Context    ContextConfig    `yaml:"context"`
	FireForget FireForgetConfig `yaml:"fire_forget"`
	VAD        VADConfig        `yaml:"vad"`
}

// ServerConfig holds logging and ambient HTTP-server settings for the
// assistant daemon.
type ServerConfig struct {
	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the listen address for the ambient /healthz, /readyz,
	// and /metrics endpoints (e.g. ":9090"). Empty disables the server; the
	// pipeline itself never depends on it being up.
	MetricsAddr string `yaml:"metrics_addr"`
}

// ComponentNames enumerates the recognized component identifiers used in
// ComponentsConfig.Enabled/Disabled.
const (
	ComponentAudio         = "audio"
	ComponentTTS           = "tts"
	ComponentASR           = "asr"
	ComponentLLM           = "llm"
	ComponentNLU           = "nlu"
	ComponentTextProcessor = "text_processor"
	ComponentVoiceTrigger  = "voice_trigger"
)

// ComponentsConfig declares which optional subsystems to instantiate.
type ComponentsConfig struct {
	Enabled  []string `yaml:"enabled"`
	Disabled []string `yaml:"disabled"`
}

// IsEnabled reports whether name appears in c.Enabled and does not appear in
// c.Disabled. Disabled takes precedence over Enabled when both name a
// component.
func (c ComponentsConfig) IsEnabled(name string) bool {
	for _, d := range c.Disabled {
		if d == name {
			return false
		}
	}
	for _, e := range c.Enabled {
		if e == name {
			return true
		}
	}
	return false
}

// WorkflowsConfig declares which pipeline workflow(s) to start.
type WorkflowsConfig struct {
	Enabled []string `yaml:"enabled"`
	Default string   `yaml:"default"`
}

// ProvidersConfig declares which named backend to use for each capability,
// plus its fallback chain.
type ProvidersConfig struct {
	ASR      ProviderKindConfig `yaml:"asr"`
	TTS      ProviderKindConfig `yaml:"tts"`
	LLM      ProviderKindConfig `yaml:"llm"`
	WakeWord ProviderKindConfig `yaml:"wake_word"`
	Embed    ProviderKindConfig `yaml:"embeddings"`
}

// ProviderKindConfig is the common configuration block shared by every
// capability kind.
type ProviderKindConfig struct {
	// Enabled gates whether this capability is instantiated at all.
	Enabled bool `yaml:"enabled"`

	// Default selects the registered provider implementation consulted first
	// (e.g. "openai", "whisper-native").
	Default string `yaml:"default"`

	// FallbackProviders lists provider names tried, in order, when Default is
	// unavailable. An empty list means "fail if the default is unavailable."
	FallbackProviders []string `yaml:"fallback_providers"`

	// Entries holds per-provider-name configuration (API keys, base URLs,
	// model selection) keyed by provider name, covering both Default and
	// every name in FallbackProviders.
	Entries map[string]ProviderEntry `yaml:"entries"`
}

// ProviderEntry is the common configuration block for a single named
// provider implementation.
type ProviderEntry struct {
	// APIKey is the authentication key for the provider's API.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// NLUConfig configures the intent-recognition cascade.
type NLUConfig struct {
	// EnabledPlugins is the ordered list of cascade stages to run.
	// "keyword_matcher" is mandatory and is auto-prepended if absent.
	EnabledPlugins []string `yaml:"enabled_plugins"`

	// Thresholds overrides the cascade-default confidence threshold for a
	// named plugin.
	Thresholds map[string]float64 `yaml:"thresholds"`
}

// HasNonFallbackPlugin reports whether EnabledPlugins names any stage other
// than "fallback".
func (c NLUConfig) HasNonFallbackPlugin() bool {
	for _, p := range c.EnabledPlugins {
		if p != "fallback" {
			return true
		}
	}
	return false
}

// IntentsConfig configures which handler domains are loaded.
type IntentsConfig struct {
	Handlers HandlersConfig `yaml:"handlers"`
}

// HandlersConfig declares which handler domains to enable or disable.
type HandlersConfig struct {
	Enabled  []string `yaml:"enabled"`
	Disabled []string `yaml:"disabled"`
}

// StorageConfig configures filesystem locations the runtime writes to.
type StorageConfig struct {
	// TempAudioDir is where synthesized TTS audio is written before
	// playback. Mandatory when both tts and audio components are enabled;
	// when unset, validation fills in the system temp directory itself
	// (os.TempDir()). No subdirectory is created.
	TempAudioDir string `yaml:"temp_audio_dir"`

	// DonationsDir is the directory donation.Registry.Load reads
	// "<handler>.json" documents from.
	DonationsDir string `yaml:"donations_dir"`

	// VectorStoreDSN, when set, selects the pgvector-backed semantic index
	// (pkg/vectorstore/postgres) over the default in-process brute-force
	// index (pkg/vectorstore/memory).
	VectorStoreDSN string `yaml:"vector_store_dsn"`
}

// ContextConfig configures the session context manager, mirroring
// session.ManagerConfig.
type ContextConfig struct {
	SessionTimeoutS      int `yaml:"session_timeout_s"`
	CleanupIntervalS     int `yaml:"cleanup_interval_s"`
	MaxHistory           int `yaml:"max_history"`
	EvictionGracePeriodS int `yaml:"eviction_grace_period_s"`
}

// Defaults
const (
	DefaultSessionTimeoutS      = 1800
	DefaultCleanupIntervalS     = 300
	DefaultMaxHistory           = 10
	DefaultEvictionGracePeriodS = 2
)

// WithDefaults returns a copy of c with zero fields replaced by their
// documented defaults.
func (c ContextConfig) WithDefaults() ContextConfig {
	if c.SessionTimeoutS <= 0 {
		c.SessionTimeoutS = DefaultSessionTimeoutS
	}
	if c.CleanupIntervalS <= 0 {
		c.CleanupIntervalS = DefaultCleanupIntervalS
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = DefaultMaxHistory
	}
	if c.EvictionGracePeriodS <= 0 {
		c.EvictionGracePeriodS = DefaultEvictionGracePeriodS
	}
	return c
}

// SessionTimeout returns the configured session timeout as a time.Duration.
func (c ContextConfig) SessionTimeout() time.Duration {
	return time.Duration(c.WithDefaults().SessionTimeoutS) * time.Second
}

// CleanupInterval returns the configured cleanup interval as a time.Duration.
func (c ContextConfig) CleanupInterval() time.Duration {
	return time.Duration(c.WithDefaults().CleanupIntervalS) * time.Second
}

// FireForgetConfig configures the background task engine, mirroring
// fireforget.EngineConfig.
type FireForgetConfig struct {
	DefaultTimeoutS         int   `yaml:"default_timeout_s"`
	DefaultRetries          int   `yaml:"default_retries"`
	CriticalErrorThreshold  int   `yaml:"critical_error_threshold"`
	MaxConcurrent           int64 `yaml:"max_concurrent"`
}

// Defaults
const (
	DefaultFireForgetTimeoutS        = 300
	DefaultFireForgetRetries         = 0
	DefaultFireForgetCriticalThresh  = 3
)

// WithDefaults returns a copy of c with zero fields replaced by their
// documented defaults.
func (c FireForgetConfig) WithDefaults() FireForgetConfig {
	if c.DefaultTimeoutS <= 0 {
		c.DefaultTimeoutS = DefaultFireForgetTimeoutS
	}
	if c.CriticalErrorThreshold <= 0 {
		c.CriticalErrorThreshold = DefaultFireForgetCriticalThresh
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = fireforget.DefaultMaxConcurrent
	}
	return c
}

// DefaultTimeout returns the configured default action timeout as a
// time.Duration.
func (c FireForgetConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.WithDefaults().DefaultTimeoutS) * time.Second
}

// VADConfig configures the voice-activity-detection state machine, mirroring
// audio.Processor's tuning knobs.
type VADConfig struct {
	EnergyThreshold     float64 `yaml:"energy_threshold"`
	Sensitivity         float64 `yaml:"sensitivity"`
	VoiceDurationMs     int     `yaml:"voice_duration_ms"`
	SilenceDurationMs   int     `yaml:"silence_duration_ms"`
	MaxSegmentDurationS int     `yaml:"max_segment_duration_s"`

	// UseZeroCrossingRate defaults to true; set to false explicitly to
	// disable the ZCR term of the voice predicate.
	UseZeroCrossingRate *bool `yaml:"use_zero_crossing_rate"`
	AdaptiveThreshold   bool  `yaml:"adaptive_threshold"`
}

// ZCREnabled reports the effective value of UseZeroCrossingRate, applying
// its true default when unset.
func (c VADConfig) ZCREnabled() bool {
	if c.UseZeroCrossingRate == nil {
		return true
	}
	return *c.UseZeroCrossingRate
}

// Defaults
const (
	DefaultVADEnergyThreshold     = 0.01
	DefaultVADSensitivity         = 0.5
	DefaultVADVoiceDurationMs     = 100
	DefaultVADSilenceDurationMs   = 200
	DefaultVADMaxSegmentDuration  = 10
	// DefaultVADFrameDurationMs is the assumed duration of a single audio
	// frame, used to convert the millisecond-denominated voice/silence
	// duration knobs into the frame counts audio.Processor's options take.
	DefaultVADFrameDurationMs = 20
)

// WithDefaults returns a copy of c with zero fields replaced by their
// documented defaults.
func (c VADConfig) WithDefaults() VADConfig {
	if c.EnergyThreshold <= 0 {
		c.EnergyThreshold = DefaultVADEnergyThreshold
	}
	if c.Sensitivity <= 0 {
		c.Sensitivity = DefaultVADSensitivity
	}
	if c.VoiceDurationMs <= 0 {
		c.VoiceDurationMs = DefaultVADVoiceDurationMs
	}
	if c.SilenceDurationMs <= 0 {
		c.SilenceDurationMs = DefaultVADSilenceDurationMs
	}
	if c.MaxSegmentDurationS <= 0 {
		c.MaxSegmentDurationS = DefaultVADMaxSegmentDuration
	}
	return c
}
