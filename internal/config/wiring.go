package config

import (
	"time"

	vadengine "github.com/voxrun/assistant/internal/audio"
	"github.com/voxrun/assistant/internal/fireforget"
	"github.com/voxrun/assistant/internal/session"
)

// VADOptions translates c into the vadengine.Option slice that configures an
// audio.Processor, converting the millisecond-denominated duration knobs
// into frame counts using DefaultVADFrameDurationMs.
func (c VADConfig) VADOptions() []vadengine.Option {
	d := c.WithDefaults()

	voiceFrames := max(1, d.VoiceDurationMs/DefaultVADFrameDurationMs)
	silenceFrames := max(1, d.SilenceDurationMs/DefaultVADFrameDurationMs)

	opts := []vadengine.Option{
		vadengine.WithBaseThreshold(d.EnergyThreshold),
		vadengine.WithVoiceFramesRequired(voiceFrames),
		vadengine.WithSilenceFramesRequired(silenceFrames),
		vadengine.WithMaxSegmentDuration(time.Duration(d.MaxSegmentDurationS) * time.Second),
	}
	if d.ZCREnabled() {
		opts = append(opts, vadengine.WithZCR(0.02, 0.5))
	}
	if d.AdaptiveThreshold {
		opts = append(opts, vadengine.WithAdaptiveThreshold(d.Sensitivity))
	}
	return opts
}

// ManagerConfig translates c into a session.ManagerConfig.
func (c ContextConfig) ManagerConfig() session.ManagerConfig {
	d := c.WithDefaults()
	return session.ManagerConfig{
		SessionTimeout:      time.Duration(d.SessionTimeoutS) * time.Second,
		CleanupInterval:     time.Duration(d.CleanupIntervalS) * time.Second,
		MaxHistory:          d.MaxHistory,
		EvictionGracePeriod: time.Duration(d.EvictionGracePeriodS) * time.Second,
	}
}

// EngineConfig translates c into a fireforget.EngineConfig. Classifier and
// Sink are left for the caller to attach since they depend on wiring
// decisions outside the config document.
func (c FireForgetConfig) EngineConfig() fireforget.EngineConfig {
	d := c.WithDefaults()
	return fireforget.EngineConfig{
		DefaultTimeout:    time.Duration(d.DefaultTimeoutS) * time.Second,
		DefaultRetries:    d.DefaultRetries,
		CriticalThreshold: d.CriticalErrorThreshold,
		MaxConcurrent:     d.MaxConcurrent,
	}
}
