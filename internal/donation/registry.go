package donation

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/voxrun/assistant/internal/apperr"
)

// Snapshot is the immutable, read-only bundle of validated donation
// documents active at a given time. A Snapshot is never mutated after Load
// returns it; reloads produce a new Snapshot that the Registry swaps in
// atomically.
type Snapshot struct {
	byIntentName map[string]*MethodDonation
	byDomain     map[string][]*MethodDonation
	handlers     map[string]*HandlerDonation
}

// Lookup returns the method donation registered under full intent name
// "{domain}.{suffix}".
func (s *Snapshot) Lookup(fullIntentName string) (*MethodDonation, bool) {
	m, ok := s.byIntentName[fullIntentName]
	return m, ok
}

// MethodsForDomain returns every method donation belonging to domain, in
// load order.
func (s *Snapshot) MethodsForDomain(domain string) []*MethodDonation {
	return s.byDomain[domain]
}

// Handler returns the full HandlerDonation for domain, including its
// compiled negative_patterns.
func (s *Snapshot) Handler(domain string) (*HandlerDonation, bool) {
	h, ok := s.handlers[domain]
	return h, ok
}

// AllMethods returns every method donation across every handler, in load
// order within each handler. The order of the handlers relative to each
// other is not defined and can differ between calls.
func (s *Snapshot) AllMethods() []*MethodDonation {
	out := make([]*MethodDonation, 0, len(s.byIntentName))
	for _, domain := range s.domainOrder() {
		out = append(out, s.byDomain[domain]...)
	}
	return out
}

// KnownEntityValues returns the deduplicated union of every Choices value
// declared on a "choice" or "entity" parameter across every handler's
// global_parameters and every method's parameters. It is the vocabulary
// ASR-output phonetic correction aligns candidate words against (e.g. room
// names, device names): values a user is expected to actually say, drawn
// straight from the donation documents rather than a separately maintained
// gazetteer.
func (s *Snapshot) KnownEntityValues() []string {
	seen := make(map[string]struct{})
	var out []string

	collect := func(params []ParameterSpec) {
		for _, p := range params {
			if p.Type != ParamChoice && p.Type != ParamEntity {
				continue
			}
			for _, c := range p.Choices {
				if _, ok := seen[c]; ok {
					continue
				}
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}

	for _, domain := range s.domainOrder() {
		if h, ok := s.handlers[domain]; ok {
			collect(h.GlobalParameters)
		}
		for _, m := range s.byDomain[domain] {
			collect(m.Parameters)
		}
	}
	return out
}

func (s *Snapshot) domainOrder() []string {
	domains := make([]string, 0, len(s.byDomain))
	for d := range s.byDomain {
		domains = append(domains, d)
	}
	return domains
}

// Registry owns the current Snapshot and knows how to (re)build one from a
// filesystem. Safe for concurrent use: Current returns a consistent
// snapshot reference while Reload builds the next one off to the side.
type Registry struct {
	current atomic.Pointer[Snapshot]
	strict  bool
}

// NewRegistry constructs an empty Registry. strict controls whether a
// missing handler document or a validation failure is fatal (true) or
// logged-and-skipped (false)
func NewRegistry(strict bool) *Registry {
	r := &Registry{strict: strict}
	r.current.Store(&Snapshot{
		byIntentName: map[string]*MethodDonation{},
		byDomain:     map[string][]*MethodDonation{},
		handlers:     map[string]*HandlerDonation{},
	})
	return r
}

// Current returns the active snapshot. Never nil.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// KnownHandlerDomains is implemented by the handler registry; Load uses it
// to detect orphan donations (a document with no matching handler) and to
// detect handlers with no donation document at all.
type KnownHandlerDomains interface {
	HandlerCapability
	Domains() []string
}

// Load discovers every "<handler>.json" file directly under root, parses
// and validates each as a HandlerDonation, and
// atomically replaces the current snapshot with the result.
//
// handlers, if non-nil, is consulted for the "handler has method" predicate
// (validation rule 6) and for missing-document detection: any handler
// domain it reports that has no corresponding donation file is fatal in
// strict mode, logged in lenient mode.
func (r *Registry) Load(fsys fs.FS, root string, handlers KnownHandlerDomains) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("donation: read donation root %q: %w", root, err)
	}

	byIntentName := make(map[string]*MethodDonation)
	byDomain := make(map[string][]*MethodDonation)
	byHandler := make(map[string]*HandlerDonation)
	seenDomain := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(root, entry.Name())
		h, err := loadOne(fsys, path)
		if err != nil {
			if r.strict {
				return err
			}
			slog.Warn("donation: skipping invalid donation document", "path", path, "err", err)
			continue
		}

		var capability HandlerCapability
		if handlers != nil {
			capability = handlers
		}
		if err := validate(h, capability); err != nil {
			if r.strict {
				return err
			}
			slog.Warn("donation: skipping donation failing validation", "path", path, "err", err)
			continue
		}

		if handlers != nil && !domainKnown(handlers, h.HandlerDomain) {
			slog.Warn("donation: orphan donation document, no matching handler", "handler_domain", h.HandlerDomain, "path", path)
			continue
		}

		seenDomain[h.HandlerDomain] = struct{}{}
		byHandler[h.HandlerDomain] = h
		for i := range h.MethodDonations {
			m := &h.MethodDonations[i]
			byIntentName[m.FullIntentName()] = m
			byDomain[h.HandlerDomain] = append(byDomain[h.HandlerDomain], m)
		}
	}

	if handlers != nil {
		for _, domain := range handlers.Domains() {
			if _, ok := seenDomain[domain]; !ok {
				msg := fmt.Sprintf("donation: handler domain %q has no donation document", domain)
				if r.strict {
					return apperr.New(apperr.ErrDonationSchema, "%s", msg)
				}
				slog.Warn(msg)
			}
		}
	}

	r.current.Store(&Snapshot{
		byIntentName: byIntentName,
		byDomain:     byDomain,
		handlers:     byHandler,
	})
	return nil
}

func domainKnown(handlers KnownHandlerDomains, domain string) bool {
	for _, d := range handlers.Domains() {
		if d == domain {
			return true
		}
	}
	return false
}

func loadOne(fsys fs.FS, path string) (*HandlerDonation, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("donation: open %q: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	var h HandlerDonation
	if err := dec.Decode(&h); err != nil {
		return nil, apperr.Wrap(apperr.ErrDonationSchema, err, "decode %q", path)
	}
	return &h, nil
}
