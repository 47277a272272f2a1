package nlu

import (
	"context"
	"time"

	"github.com/voxrun/assistant/internal/donation"
	"github.com/voxrun/assistant/internal/session"
	"github.com/voxrun/assistant/pkg/vectorstore"
)

const defaultSemanticThreshold = 0.55

// Embedder produces a vector embedding for a piece of text. Implementations
// live in internal/adapter, bridging pkg/provider/embeddings.Provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SemanticPlugin is the optional semantic-vector cascade stage: it embeds
// the input and selects the nearest donation method by
// cosine similarity, provided the similarity clears the configured
// threshold. The nearest-neighbour index is supplied by pkg/vectorstore
// (an in-memory brute-force index or a pgvector-backed one).
type SemanticPlugin struct {
	embedder  Embedder
	index     vectorstore.Index
	threshold float64

	lastSnapshot *donation.Snapshot
}

// SemanticOption configures a SemanticPlugin.
type SemanticOption func(*SemanticPlugin)

// WithSemanticThreshold overrides the default 0.55 cosine-similarity gate.
func WithSemanticThreshold(t float64) SemanticOption {
	return func(p *SemanticPlugin) { p.threshold = t }
}

// NewSemanticPlugin builds a SemanticPlugin backed by embedder and index.
// Either may be nil, in which case Recognize always reports
// apperr.ErrDependencyUnavailable so the cascade skips this stage.
func NewSemanticPlugin(embedder Embedder, index vectorstore.Index, opts ...SemanticOption) *SemanticPlugin {
	p := &SemanticPlugin{embedder: embedder, index: index, threshold: defaultSemanticThreshold}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *SemanticPlugin) Name() string      { return "semantic_vector" }
func (p *SemanticPlugin) Threshold() float64 { return p.threshold }

// syncCorpus (re)embeds every method's phrases into the index when the
// donation snapshot has changed since the last call. Donation phrases are
// embedded once per snapshot, on the first Recognize call that sees it, not
// per request.
func (p *SemanticPlugin) syncCorpus(ctx context.Context, snapshot *donation.Snapshot) error {
	if snapshot == p.lastSnapshot {
		return nil
	}
	for _, m := range snapshot.AllMethods() {
		embeddings := make([][]float32, 0, len(m.Phrases))
		for _, phrase := range m.Phrases {
			vec, err := p.embedder.Embed(ctx, phrase)
			if err != nil {
				return err
			}
			embeddings = append(embeddings, vec)
		}
		if err := p.index.Upsert(ctx, m.FullIntentName(), embeddings); err != nil {
			return err
		}
	}
	p.lastSnapshot = snapshot
	return nil
}

func (p *SemanticPlugin) Recognize(ctx context.Context, text string, sctx *session.UnifiedContext, snapshot *donation.Snapshot) (*PluginResult, error) {
	if p.embedder == nil || p.index == nil {
		return nil, errDependencyUnavailable("semantic_vector", "no embedder/index configured")
	}
	if err := p.syncCorpus(ctx, snapshot); err != nil {
		return nil, err
	}

	query, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	match, ok, err := p.index.Nearest(ctx, query)
	if err != nil {
		return nil, err
	}
	if !ok || match.Similarity < p.threshold {
		return nil, nil
	}
	method, ok := snapshot.Lookup(match.FullIntentName)
	if !ok {
		return nil, nil
	}

	intent := Intent{
		Name:       method.FullIntentName(),
		RawText:    text,
		Confidence: match.Similarity,
		Timestamp:  time.Now(),
		Entities:   make(map[string]any),
	}
	if sctx != nil {
		intent.SessionID = sctx.SessionID()
	}
	intent.DeriveDomainAction()

	return &PluginResult{Intent: intent, Method: method}, nil
}
