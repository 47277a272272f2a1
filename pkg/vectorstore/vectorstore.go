// Package vectorstore defines the nearest-neighbour index abstraction used by
// the semantic-vector NLU cascade stage, plus two implementations: an
// in-process brute-force index (pkg/vectorstore/memory) and a
// pgvector-backed one (pkg/vectorstore/postgres).
//
// Donation phrases are embedded once per method at donation-load time and
// upserted into the index under the method's fully-qualified intent name;
// recognition queries the single nearest neighbour across every indexed
// method.
package vectorstore

import "context"

// Match is one nearest-neighbour result from an [Index] query.
type Match struct {
	FullIntentName string
	Similarity     float64
}

// Index holds one or more embeddings per donation phrase and answers
// nearest-neighbour queries by cosine similarity.
type Index interface {
	// Upsert replaces every embedding associated with fullIntentName.
	Upsert(ctx context.Context, fullIntentName string, embeddings [][]float32) error

	// Nearest returns the single closest match across all indexed methods.
	// ok is false when the index is empty.
	Nearest(ctx context.Context, query []float32) (match Match, ok bool, err error)
}
