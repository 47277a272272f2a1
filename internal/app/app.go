// Package app assembles every core component — session context, donation
// registry, NLU cascade, intent dispatch, fire-and-forget engine, and the
// pipeline orchestrator — into a single runnable App with ordered
// construction and a coordinated shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/voxrun/assistant/internal/adapter"
	"github.com/voxrun/assistant/internal/config"
	"github.com/voxrun/assistant/internal/donation"
	"github.com/voxrun/assistant/internal/fireforget"
	"github.com/voxrun/assistant/internal/handler/conversation"
	"github.com/voxrun/assistant/internal/health"
	"github.com/voxrun/assistant/internal/intent"
	"github.com/voxrun/assistant/internal/nlu"
	"github.com/voxrun/assistant/internal/pipeline"
	"github.com/voxrun/assistant/internal/session"
	"github.com/voxrun/assistant/internal/transcript/phonetic"
	"github.com/voxrun/assistant/pkg/provider/audioout/exec"
	"github.com/voxrun/assistant/pkg/vectorstore"
	"github.com/voxrun/assistant/pkg/vectorstore/memory"
	"github.com/voxrun/assistant/pkg/vectorstore/postgres"
)

// App is the assembled runtime: every component listed in the package doc,
// wired together and ready to run.
type App struct {
	cfg config.Config

	contextManager *session.ContextManager
	donations      *donation.Registry
	fireForget     *fireforget.Engine
	pipeline       *pipeline.Orchestrator
	health         *health.Handler

	closers []func(context.Context) error
}

// Option configures New beyond what Config and Providers cover.
type Option func(*options)

type options struct {
	donationsFS     fs.FS
	sink            fireforget.NotificationSink
	domainPriority  intent.PriorityMap
	registerDomains func(*intent.HandlerRegistry, capabilities)
}

// WithDonationsFS overrides the filesystem donation.Registry.Load reads
// from; defaults to os.DirFS(cfg.Storage.DonationsDir). Tests use this to
// load from an in-memory fstest.MapFS.
func WithDonationsFS(fsys fs.FS) Option {
	return func(o *options) { o.donationsFS = fsys }
}

// WithNotificationSink installs the sink that receives fire-and-forget
// completion/failure notifications. Defaults to a no-op sink.
func WithNotificationSink(sink fireforget.NotificationSink) Option {
	return func(o *options) { o.sink = sink }
}

// WithDomainPriority installs the domain → priority map used to break ties
// during contextual-command resolution.
func WithDomainPriority(p intent.PriorityMap) Option {
	return func(o *options) { o.domainPriority = p }
}

// WithDomainHandlers registers additional intent handler domains beyond the
// built-in conversation fallback. register is called once, after the
// conversation handler has already been registered, with the constructed
// capability providers available for handlers that need them (e.g. an LLM
// for a smart-home domain's clarification prompts).
func WithDomainHandlers(register func(reg *intent.HandlerRegistry, caps capabilities)) Option {
	return func(o *options) { o.registerDomains = register }
}

// New builds every component from cfg, preferring any non-nil field of
// providers over building one from cfg.Providers. The fire-and-forget engine
// is built before the context manager since the manager needs it as its
// ActionCanceller; everything else follows: donation registry, capability
// providers, NLU cascade, intent handlers, pipeline orchestrator.
func New(ctx context.Context, cfg config.Config, providers Providers, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg}

	ffCfg := cfg.FireForget.EngineConfig()
	ffCfg.Sink = o.sink
	a.fireForget = fireforget.New(ffCfg)

	mgrCfg := cfg.Context.ManagerConfig()
	mgrCfg.Canceller = a.fireForget
	a.contextManager = session.NewManager(mgrCfg)

	a.donations = donation.NewRegistry(true)
	handlerRegistry := intent.NewHandlerRegistry()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	caps, err := buildCapabilities(reg, cfg.Providers, providers)
	if err != nil {
		return nil, err
	}

	convHandler := conversation.New(caps.llm)
	handlerRegistry.Register("conversation", []string{"general"}, "conversation.*", convHandler)
	if o.registerDomains != nil {
		o.registerDomains(handlerRegistry, caps)
	}

	donationsFS := o.donationsFS
	if donationsFS == nil {
		if cfg.Storage.DonationsDir == "" {
			return nil, fmt.Errorf("app: storage.donations_dir is required")
		}
		donationsFS = os.DirFS(cfg.Storage.DonationsDir)
	}
	if err := a.donations.Load(donationsFS, ".", handlerRegistry); err != nil {
		return nil, fmt.Errorf("app: load donations: %w", err)
	}

	vectorIndex, err := buildVectorIndex(ctx, cfg.Storage.VectorStoreDSN)
	if err != nil {
		return nil, err
	}
	if closer, ok := vectorIndex.(interface{ Close() }); ok {
		a.closers = append(a.closers, func(context.Context) error { closer.Close(); return nil })
	}

	cascade, err := buildCascade(a.donations, cfg.NLU, caps, vectorIndex)
	if err != nil {
		return nil, err
	}

	intentOrch := intent.New(handlerRegistry, intent.WithDomainPriority(o.domainPriority))

	pipelineCfg := pipeline.Config{
		ContextManager: a.contextManager,
		NLU:            cascade,
		Intents:        intentOrch,
		VADOptions:     cfg.VAD.VADOptions(),
		TempDir:        cfg.Storage.TempAudioDir,
		KnownEntities:  func() []string { return a.donations.Current().KnownEntityValues() },
	}
	if caps.asr != nil {
		pipelineCfg.ASR = adapter.NewTranscriber(caps.asr)
		pipelineCfg.EntityMatcher = phonetic.New()
	}
	if caps.wakeWord != nil {
		pipelineCfg.WakeWord = adapter.NewWakeWordDetector(caps.wakeWord)
	}
	if caps.tts != nil {
		pipelineCfg.TTS = adapter.NewSynthesizer(caps.tts)
		pipelineCfg.AudioOut = adapter.NewAudioOutput(exec.New(defaultPlaybackCommand))
	}

	orch, err := pipeline.New(pipelineCfg)
	if err != nil {
		return nil, err
	}
	a.pipeline = orch

	a.health = health.New(health.Checker{
		Name: "donations",
		Check: func(context.Context) error {
			if len(a.donations.Current().AllMethods()) == 0 {
				return errors.New("no donation methods loaded")
			}
			return nil
		},
	})

	return a, nil
}

// defaultPlaybackCommand is the shell command adapter.AudioOutput shells out
// to for local playback. It is a fixed value: no configuration field or
// environment variable overrides it.
const defaultPlaybackCommand = "aplay"

// buildVectorIndex selects the pgvector-backed index when dsn is set, else
// the in-process brute-force index.
func buildVectorIndex(ctx context.Context, dsn string) (vectorstore.Index, error) {
	if dsn == "" {
		return memory.New(), nil
	}
	store, err := postgres.NewStore(ctx, dsn, adapterEmbeddingDimensions)
	if err != nil {
		return nil, fmt.Errorf("app: vector store: %w", err)
	}
	return store, nil
}

// adapterEmbeddingDimensions matches the output size of OpenAI
// text-embedding-3-small (1536). Ollama's nomic-embed-text returns
// 768-dimensional vectors, and nothing pads them to 1536.
const adapterEmbeddingDimensions = 1536

// buildCascade assembles the enabled NLU plugins in cfg.NLU.EnabledPlugins
// order, auto-prepending keyword_matcher when absent. index
// is the shared vector store backing the semantic_vector stage, when
// enabled.
func buildCascade(donations *donation.Registry, cfg config.NLUConfig, caps capabilities, index vectorstore.Index) (*nlu.Cascade, error) {
	names := cfg.EnabledPlugins
	if len(names) == 0 || names[0] != "keyword_matcher" {
		names = append([]string{"keyword_matcher"}, names...)
	}

	var plugins []nlu.Plugin
	for _, name := range names {
		switch name {
		case "keyword_matcher":
			plugins = append(plugins, nlu.NewKeywordPlugin(thresholdOpt(cfg, name, nlu.WithKeywordThreshold)...))
		case "rule_matcher":
			plugins = append(plugins, nlu.NewRulePlugin(thresholdOpt(cfg, name, nlu.WithRuleThreshold)...))
		case "semantic_vector":
			if caps.embeddings == nil {
				slog.Warn("app: semantic_vector enabled without an embeddings provider; skipping")
				continue
			}
			plugins = append(plugins, nlu.NewSemanticPlugin(adapter.NewEmbedder(caps.embeddings), index,
				thresholdOpt(cfg, name, nlu.WithSemanticThreshold)...))
		case "llm_nlu":
			if caps.llm == nil {
				slog.Warn("app: llm_nlu enabled without an LLM provider; skipping")
				continue
			}
			plugins = append(plugins, nlu.NewLLMPlugin(adapter.NewLLMRecognizer(caps.llm),
				thresholdOpt(cfg, name, nlu.WithLLMThreshold)...))
		case "fallback":
			// The cascade invokes BuildFallbackIntent internally; no stage to add.
		default:
			return nil, fmt.Errorf("app: unknown nlu plugin %q", name)
		}
	}

	return nlu.NewCascade(donations, plugins), nil
}

// thresholdOpt returns a single-element option slice overriding name's
// threshold from cfg.Thresholds, or nil when unset (letting the plugin keep
// its built-in default).
func thresholdOpt[O any](cfg config.NLUConfig, name string, with func(float64) O) []O {
	t, ok := cfg.Thresholds[name]
	if !ok {
		return nil
	}
	return []O{with(t)}
}

// Run starts the context manager's eviction loop and blocks until ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	a.contextManager.Start(ctx)
	<-ctx.Done()
	return nil
}

// Pipeline returns the assembled orchestrator, for a transport (like
// cmd/assistantd's stdin frame source) to drive.
func (a *App) Pipeline() *pipeline.Orchestrator { return a.pipeline }

// Health returns the ambient health/readiness handler.
func (a *App) Health() *health.Handler { return a.health }

// Shutdown stops the context manager's eviction loop, waits for in-flight
// fire-and-forget tasks until they finish or ctx is done, and then runs every
// registered closer concurrently, all within the context's deadline.
func (a *App) Shutdown(ctx context.Context) error {
	a.contextManager.Stop()

	done := make(chan struct{})
	go func() {
		a.fireForget.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	// Closers are independent resources (vector store connections, etc.) with
	// no ordering dependency between them, so they run concurrently rather
	// than one at a time via an errgroup.WithContext fan-out.
	eg, egCtx := errgroup.WithContext(ctx)
	for _, closer := range a.closers {
		closer := closer
		eg.Go(func() error { return closer(egCtx) })
	}
	return eg.Wait()
}

// FireForget returns the background task engine, for handlers constructed
// outside this package (via WithDomainHandlers) that need to start
// fire-and-forget actions.
func (a *App) FireForget() *fireforget.Engine { return a.fireForget }
