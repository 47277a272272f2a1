package nlu

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/voxrun/assistant/internal/donation"
	"github.com/voxrun/assistant/internal/session"
)

const (
	defaultKeywordThreshold   = 0.8
	defaultFuzzyConfidenceBase = 0.6
	defaultMaxTextLenForFuzzy = 60
	defaultLRUCapacity        = 1000

	exactMultiplier    = 1.0
	flexibleMultiplier = 0.9
	partialMultiplier  = 0.8
	partialWordRatio   = 0.7
)

// phraseMatcher holds the three regex variants for one donation phrase:
// exact, flexible (word-order-insensitive), and partial.
type phraseMatcher struct {
	phrase   string
	words    []string
	exact    *regexp.Regexp
	wordRegs []*regexp.Regexp // one per word, for flexible/partial counting
}

func buildPhraseMatcher(phrase string) phraseMatcher {
	words := strings.Fields(strings.ToLower(phrase))
	wordRegs := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		wordRegs[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return phraseMatcher{
		phrase:   phrase,
		words:    words,
		exact:    regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(phrase)) + `\b`),
		wordRegs: wordRegs,
	}
}

// score returns the best pattern-based confidence for text against this
// phrase, or 0 if none of the three variants hit.
func (pm phraseMatcher) score(text string) float64 {
	if pm.exact.MatchString(text) {
		return exactMultiplier
	}
	if len(pm.wordRegs) == 0 {
		return 0
	}
	hits := 0
	for _, re := range pm.wordRegs {
		if re.MatchString(text) {
			hits++
		}
	}
	if hits == len(pm.wordRegs) {
		return flexibleMultiplier
	}
	if float64(hits)/float64(len(pm.wordRegs)) >= partialWordRatio {
		return partialMultiplier
	}
	return 0
}

// KeywordPlugin is the mandatory first cascade stage: exact
// / flexible-order / partial phrase regex matching with a Levenshtein-based
// fuzzy fallback, grounded on the same matchr library the corpus uses for
// phonetic/fuzzy transcript correction.
type KeywordPlugin struct {
	threshold          float64
	fuzzyConfidenceBase float64
	maxTextLenForFuzzy int
	cache              *lruCache

	lastSnapshot *donation.Snapshot
	matchers     map[string][]phraseMatcher // full intent name -> per-phrase matchers
}

// KeywordOption configures a KeywordPlugin.
type KeywordOption func(*KeywordPlugin)

// WithKeywordThreshold overrides the default 0.8 confidence gate.
func WithKeywordThreshold(t float64) KeywordOption {
	return func(p *KeywordPlugin) { p.threshold = t }
}

// WithFuzzyConfidenceBase overrides the multiplier applied to the fuzzy
// composite score.
func WithFuzzyConfidenceBase(b float64) KeywordOption {
	return func(p *KeywordPlugin) { p.fuzzyConfidenceBase = b }
}

// WithMaxTextLenForFuzzy overrides the input-length cutoff above which the
// fuzzy fallback is skipped.
func WithMaxTextLenForFuzzy(n int) KeywordOption {
	return func(p *KeywordPlugin) { p.maxTextLenForFuzzy = n }
}

// WithLRUCapacity overrides the fuzzy-result cache capacity (default 1000).
func WithLRUCapacity(n int) KeywordOption {
	return func(p *KeywordPlugin) { p.cache = newLRUCache(n) }
}

// NewKeywordPlugin builds a KeywordPlugin. BuildFrom must be called (or
// Recognize's lazy build path taken) whenever the donation snapshot changes.
func NewKeywordPlugin(opts ...KeywordOption) *KeywordPlugin {
	p := &KeywordPlugin{
		threshold:          defaultKeywordThreshold,
		fuzzyConfidenceBase: defaultFuzzyConfidenceBase,
		maxTextLenForFuzzy: defaultMaxTextLenForFuzzy,
		cache:              newLRUCache(defaultLRUCapacity),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *KeywordPlugin) Name() string      { return "keyword_matcher" }
func (p *KeywordPlugin) Threshold() float64 { return p.threshold }

// buildMatchers compiles phrase matchers for every method in snapshot,
// memoized by snapshot pointer identity via the matchers field being
// rebuilt only when nil or stale. The cascade calls this once per snapshot
// swap rather than per request.
func (p *KeywordPlugin) buildMatchers(snapshot *donation.Snapshot) {
	matchers := make(map[string][]phraseMatcher)
	for _, m := range snapshot.AllMethods() {
		pms := make([]phraseMatcher, 0, len(m.Phrases))
		for _, phrase := range m.Phrases {
			pms = append(pms, buildPhraseMatcher(phrase))
		}
		matchers[m.FullIntentName()] = pms
	}
	p.matchers = matchers
	p.lastSnapshot = snapshot
}

// Recognize implements Plugin.
func (p *KeywordPlugin) Recognize(ctx context.Context, text string, sctx *session.UnifiedContext, snapshot *donation.Snapshot) (*PluginResult, error) {
	if p.matchers == nil || p.lastSnapshot != snapshot {
		p.buildMatchers(snapshot)
	}

	type scored struct {
		method     *donation.MethodDonation
		confidence float64
	}
	var best scored

	for _, m := range snapshot.AllMethods() {
		pms := p.matchers[m.FullIntentName()]
		methodConfidence := 0.0
		for _, pm := range pms {
			if s := pm.score(text); s > methodConfidence {
				methodConfidence = s
			}
		}
		if methodConfidence > best.confidence {
			best = scored{method: m, confidence: methodConfidence}
		}
	}

	if best.confidence == 0 && len(text) <= p.maxTextLenForFuzzy {
		for _, m := range snapshot.AllMethods() {
			composite := p.fuzzyComposite(text, m.Phrases)
			confidence := p.fuzzyConfidenceBase * composite
			if confidence > best.confidence {
				best = scored{method: m, confidence: confidence}
			}
		}
	}

	if best.method == nil || best.confidence <= 0 {
		return nil, nil
	}

	intent := Intent{
		Name:       best.method.FullIntentName(),
		RawText:    text,
		Confidence: best.confidence,
		Timestamp:  time.Now(),
		Entities:   make(map[string]any),
	}
	if sctx != nil {
		intent.SessionID = sctx.SessionID()
	}
	intent.DeriveDomainAction()

	return &PluginResult{Intent: intent, Method: best.method}, nil
}

func (p *KeywordPlugin) fuzzyComposite(text string, keywords []string) float64 {
	cacheKey := strings.ToLower(strings.TrimSpace(text)) + "\x00" + strings.Join(keywords, "\x01")
	if cached, ok := p.cache.get(cacheKey); ok {
		return cached.composite
	}
	composite := compositeScore(text, keywords)
	p.cache.put(cacheKey, fuzzyScoreResult{composite: composite})
	return composite
}
