// Package observe provides application-wide observability primitives for the
// voice assistant runtime: OpenTelemetry metrics, distributed tracing,
// structured logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all runtime metrics.
const meterName = "github.com/voxrun/assistant"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// NLUCascadeDuration tracks the total cascade resolution latency for a
	// single utterance. Use with attribute.String("resolved_by", pluginName).
	NLUCascadeDuration metric.Float64Histogram

	// NLUPluginDuration tracks per-plugin latency within the cascade. Use
	// with attribute.String("plugin", name).
	NLUPluginDuration metric.Float64Histogram

	// HandlerDispatchDuration tracks handler execution latency. Use with
	// attribute.String("handler", name).
	HandlerDispatchDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end audio-to-action latency.
	PipelineDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// NLUCascadeHits counts which cascade stage resolved an utterance. Use
	// with attribute.String("plugin", name).
	NLUCascadeHits metric.Int64Counter

	// DisambiguationPrompts counts the number of times the orchestrator had
	// to prompt for clarification due to ambiguous candidates.
	DisambiguationPrompts metric.Int64Counter

	// VADSegmentsDetected counts completed voice segments emitted by the VAD
	// state machine. Use with attribute.Bool("truncated", seg.Truncated).
	VADSegmentsDetected metric.Int64Counter

	// FireForgetOutcomes counts terminal fire-and-forget action outcomes.
	// Use with attribute.String("outcome", "success"|"failure"|"timeout"|"cancelled").
	FireForgetOutcomes metric.Int64Counter

	// ContextEvictions counts session contexts evicted by the cleanup sweep.
	ContextEvictions metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live room sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ActiveFireForgetActions tracks the number of in-flight background
	// actions across all sessions.
	ActiveFireForgetActions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("assistant.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("assistant.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.NLUCascadeDuration, err = m.Float64Histogram("assistant.nlu.cascade.duration",
		metric.WithDescription("Latency of the full NLU cascade for one utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.NLUPluginDuration, err = m.Float64Histogram("assistant.nlu.plugin.duration",
		metric.WithDescription("Latency of a single NLU cascade plugin."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HandlerDispatchDuration, err = m.Float64Histogram("assistant.handler.dispatch.duration",
		metric.WithDescription("Latency of intent handler execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("assistant.pipeline.duration",
		metric.WithDescription("End-to-end latency from audio segment to dispatched action."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("assistant.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.NLUCascadeHits, err = m.Int64Counter("assistant.nlu.cascade.hits",
		metric.WithDescription("Total utterances resolved by each cascade plugin."),
	); err != nil {
		return nil, err
	}
	if met.DisambiguationPrompts, err = m.Int64Counter("assistant.disambiguation.prompts",
		metric.WithDescription("Total clarification prompts issued for ambiguous commands."),
	); err != nil {
		return nil, err
	}
	if met.VADSegmentsDetected, err = m.Int64Counter("assistant.vad.segments",
		metric.WithDescription("Total voice segments emitted by the VAD state machine."),
	); err != nil {
		return nil, err
	}
	if met.FireForgetOutcomes, err = m.Int64Counter("assistant.fireforget.outcomes",
		metric.WithDescription("Total terminal outcomes of fire-and-forget actions, by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ContextEvictions, err = m.Int64Counter("assistant.context.evictions",
		metric.WithDescription("Total session contexts evicted by the idle-session sweep."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("assistant.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("assistant.active_sessions",
		metric.WithDescription("Number of live room sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActiveFireForgetActions, err = m.Int64UpDownCounter("assistant.active_fireforget_actions",
		metric.WithDescription("Number of in-flight background actions across all sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("assistant.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordCascadeHit is a convenience method that records which NLU cascade
// plugin resolved an utterance.
func (m *Metrics) RecordCascadeHit(ctx context.Context, plugin string) {
	m.NLUCascadeHits.Add(ctx, 1, metric.WithAttributes(attribute.String("plugin", plugin)))
}

// RecordFireForgetOutcome is a convenience method that records a terminal
// fire-and-forget action outcome.
func (m *Metrics) RecordFireForgetOutcome(ctx context.Context, outcome string) {
	m.FireForgetOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
