package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/voxrun/assistant/pkg/vectorstore"
)

// Store is a PostgreSQL/pgvector-backed [vectorstore.Index]. Obtain one via
// [NewStore] rather than constructing directly. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Compile-time interface check.
var _ vectorstore.Index = (*Store)(nil)

// NewStore establishes a connection pool to the PostgreSQL database at dsn,
// registers pgvector types on every connection, and runs [Migrate] to
// ensure the phrase_embeddings table exists.
//
// embeddingDimensions must match the output dimension of the embedding
// model configured for the semantic-vector cascade stage (e.g. 1536 for
// OpenAI text-embedding-3-small, 768 for nomic-embed-text).
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres vectorstore: parse dsn: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres vectorstore: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres vectorstore: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Upsert replaces every row indexed under fullIntentName with the supplied
// embeddings, inside a single transaction.
func (s *Store) Upsert(ctx context.Context, fullIntentName string, embeddings [][]float32) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres vectorstore: upsert: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM phrase_embeddings WHERE full_intent_name = $1`, fullIntentName); err != nil {
		return fmt.Errorf("postgres vectorstore: upsert: delete: %w", err)
	}

	for _, vec := range embeddings {
		_, err := tx.Exec(ctx,
			`INSERT INTO phrase_embeddings (full_intent_name, embedding) VALUES ($1, $2)`,
			fullIntentName, pgvector.NewVector(vec),
		)
		if err != nil {
			return fmt.Errorf("postgres vectorstore: upsert: insert: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres vectorstore: upsert: commit: %w", err)
	}
	return nil
}

// Nearest finds the single row whose embedding is closest (cosine distance)
// to query, across every indexed method.
func (s *Store) Nearest(ctx context.Context, query []float32) (vectorstore.Match, bool, error) {
	const q = `
		SELECT full_intent_name, 1 - (embedding <=> $1) AS similarity
		FROM   phrase_embeddings
		ORDER  BY embedding <=> $1
		LIMIT  1`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(query))
	if err != nil {
		return vectorstore.Match{}, false, fmt.Errorf("postgres vectorstore: nearest: %w", err)
	}

	match, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[vectorstore.Match])
	if err != nil {
		if err == pgx.ErrNoRows {
			return vectorstore.Match{}, false, nil
		}
		return vectorstore.Match{}, false, fmt.Errorf("postgres vectorstore: nearest: scan: %w", err)
	}
	return match, true, nil
}
