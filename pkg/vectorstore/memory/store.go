// Package memory provides an in-process, brute-force implementation of
// [vectorstore.Index]. It holds every embedding in a Go map and scans all of
// them on each query, which is fine for a donation corpus of a few hundred
// methods and a handful of phrases each — the same order of magnitude the
// pgvector-backed index targets, just without the external dependency.
package memory

import (
	"context"
	"math"
	"sync"

	"github.com/voxrun/assistant/pkg/vectorstore"
)

// entry pairs an owning method's intent name with one of its phrase
// embeddings.
type entry struct {
	fullIntentName string
	vector         []float32
}

// Store is an in-memory [vectorstore.Index]. The zero value is not usable;
// construct with [New]. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	byOwner map[string][]entry
}

// Compile-time interface check.
var _ vectorstore.Index = (*Store)(nil)

// New returns an empty, ready-to-use Store.
func New() *Store {
	return &Store{byOwner: make(map[string][]entry)}
}

// Upsert replaces every embedding indexed under fullIntentName.
func (s *Store) Upsert(_ context.Context, fullIntentName string, embeddings [][]float32) error {
	entries := make([]entry, 0, len(embeddings))
	for _, vec := range embeddings {
		entries = append(entries, entry{fullIntentName: fullIntentName, vector: vec})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(entries) == 0 {
		delete(s.byOwner, fullIntentName)
		return nil
	}
	s.byOwner[fullIntentName] = entries
	return nil
}

// Nearest scans every indexed embedding and returns the one with the
// highest cosine similarity to query.
func (s *Store) Nearest(_ context.Context, query []float32) (vectorstore.Match, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best      vectorstore.Match
		found     bool
		bestScore = -2.0 // cosine similarity is bounded to [-1, 1]
	)
	for _, entries := range s.byOwner {
		for _, e := range entries {
			sim := cosineSimilarity(query, e.vector)
			if sim > bestScore {
				bestScore = sim
				best = vectorstore.Match{FullIntentName: e.fullIntentName, Similarity: sim}
				found = true
			}
		}
	}
	return best, found, nil
}

// cosineSimilarity returns the cosine similarity between a and b, or 0 if
// either vector has zero magnitude or the vectors differ in length.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
