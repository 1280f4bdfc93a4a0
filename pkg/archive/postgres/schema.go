// Package postgres provides the PostgreSQL-backed implementation of the
// interview archive ([archive.Store] and [archive.SemanticIndex]).
//
// Both interfaces are implemented by a single [Archive] sharing one
// [pgxpool.Pool]. The pgvector extension must be available in the target
// database; [Migrate] installs it via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	arch, err := postgres.New(ctx, dsn, 1536, "text-embedding-3-small")
//	if err != nil { … }
//	defer arch.Close()
//
//	_ = arch.SaveSession(ctx, sess)
//	_ = arch.SaveEntries(ctx, sess.ID, entries)
//	_ = arch.IndexEntry(ctx, indexed)
//
//	hits, _ := arch.SearchSimilar(ctx, queryVec, 5, archive.VectorFilter{})
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ─────────────────────────────────────────────────────────────────────────────
// DDL — sessions, entries, reports
// ─────────────────────────────────────────────────────────────────────────────

const ddlSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id          TEXT         PRIMARY KEY,
    persona_id  TEXT         NOT NULL DEFAULT '',
    candidate   TEXT         NOT NULL DEFAULT '',
    model       TEXT         NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ  NOT NULL,
    ended_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sessions_started_at
    ON sessions (started_at);
`

const ddlEntries = `
CREATE TABLE IF NOT EXISTS entries (
    session_id  TEXT     NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
    position    INTEGER  NOT NULL,
    speaker     TEXT     NOT NULL,
    text        TEXT     NOT NULL,
    PRIMARY KEY (session_id, position)
);

CREATE INDEX IF NOT EXISTS idx_entries_fts
    ON entries USING GIN (to_tsvector('english', text));
`

const ddlReports = `
CREATE TABLE IF NOT EXISTS reports (
    session_id    TEXT         PRIMARY KEY REFERENCES sessions (id) ON DELETE CASCADE,
    score         INTEGER      NOT NULL,
    summary       TEXT         NOT NULL,
    strengths     JSONB        NOT NULL DEFAULT '[]',
    improvements  JSONB        NOT NULL DEFAULT '[]',
    generated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// ddlVectors returns the semantic-index DDL with the embedding dimension
// substituted. The dimension is baked into the column type at creation time.
func ddlVectors(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS entry_vectors (
    session_id       TEXT     NOT NULL,
    position         INTEGER  NOT NULL,
    speaker          TEXT     NOT NULL DEFAULT '',
    text             TEXT     NOT NULL,
    embedding        vector(%d),
    embedding_model  TEXT     NOT NULL DEFAULT '',
    PRIMARY KEY (session_id, position)
);

CREATE INDEX IF NOT EXISTS idx_entry_vectors_session
    ON entry_vectors (session_id);

CREATE INDEX IF NOT EXISTS idx_entry_vectors_embedding
    ON entry_vectors USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates all required tables, indexes, and extensions. Idempotent
// (everything is IF NOT EXISTS) and safe to call on every start.
//
// embeddingDimensions must match the embedding model in use (1536 for
// text-embedding-3-small, 768 for nomic-embed-text). Changing it after the
// first migration requires a manual schema change.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlSessions,
		ddlEntries,
		ddlReports,
		ddlVectors(embeddingDimensions),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("archive migrate: %w", err)
		}
	}
	return nil
}
