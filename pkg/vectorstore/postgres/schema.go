// Package postgres provides a pgvector-backed [vectorstore.Index]. Every
// donation phrase embedding is stored as its own row, keyed by the owning
// method's fully-qualified intent name, with an HNSW index over cosine
// distance for fast approximate nearest-neighbour search.
//
// The pgvector extension must be available in the target database;
// [Migrate] installs it automatically via CREATE EXTENSION IF NOT EXISTS.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlPhraseEmbeddings returns the DDL for the phrase_embeddings table with
// the embedding dimension baked into the column type, matching the output
// dimension of the configured providers.embeddings model.
func ddlPhraseEmbeddings(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS phrase_embeddings (
    id               BIGSERIAL    PRIMARY KEY,
    full_intent_name TEXT         NOT NULL,
    embedding        vector(%d)   NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_phrase_embeddings_intent
    ON phrase_embeddings (full_intent_name);

CREATE INDEX IF NOT EXISTS idx_phrase_embeddings_vector
    ON phrase_embeddings USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates the phrase_embeddings table and its indexes if they do not
// already exist. Idempotent and safe to call on every application start.
//
// embeddingDimensions must match the dimension of the configured embeddings
// provider. Changing it after the first migration requires a manual schema
// update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if _, err := pool.Exec(ctx, ddlPhraseEmbeddings(embeddingDimensions)); err != nil {
		return fmt.Errorf("postgres vectorstore: migrate: %w", err)
	}
	return nil
}
