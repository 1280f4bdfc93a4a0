package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/prathish132002/Live-Interview-App-sub000/pkg/archive"
)

// IndexEntry implements [archive.SemanticIndex]. It upserts the entry's
// vector keyed by (session_id, position), stamped with the index's embedding
// model. Vectors whose length does not match the configured dimension are
// rejected before touching the database.
func (a *Archive) IndexEntry(ctx context.Context, e archive.IndexedEntry) error {
	if len(e.Embedding) != a.dims {
		return fmt.Errorf("archive: index entry: embedding has %d dimensions, index wants %d", len(e.Embedding), a.dims)
	}

	const q = `
		INSERT INTO entry_vectors
		    (session_id, position, speaker, text, embedding, embedding_model)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, position) DO UPDATE SET
		    speaker         = EXCLUDED.speaker,
		    text            = EXCLUDED.text,
		    embedding       = EXCLUDED.embedding,
		    embedding_model = EXCLUDED.embedding_model`

	_, err := a.pool.Exec(ctx, q,
		e.SessionID,
		e.Position,
		e.Speaker,
		e.Text,
		pgvector.NewVector(e.Embedding),
		a.model,
	)
	if err != nil {
		return fmt.Errorf("archive: index entry: %w", err)
	}
	return nil
}

// SearchSimilar implements [archive.SemanticIndex]: cosine-distance nearest
// neighbours over the HNSW index, most similar first. Only vectors stored
// under this index's embedding model are candidates, so rows written by a
// differently configured deployment never leak into results.
func (a *Archive) SearchSimilar(ctx context.Context, embedding []float32, topK int, filter archive.VectorFilter) ([]archive.VectorResult, error) {
	if len(embedding) != a.dims {
		return nil, fmt.Errorf("archive: search similar: embedding has %d dimensions, index wants %d", len(embedding), a.dims)
	}
	if topK <= 0 {
		topK = defaultListLimit
	}

	args := []any{pgvector.NewVector(embedding)} // $1 = query vector
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{
		"embedding_model = " + next(a.model),
	}
	if filter.SessionID != "" {
		conditions = append(conditions, "session_id = "+next(filter.SessionID))
	}
	if filter.ExcludeSessionID != "" {
		conditions = append(conditions, "session_id <> "+next(filter.ExcludeSessionID))
	}
	if filter.Speaker != "" {
		conditions = append(conditions, "speaker = "+next(filter.Speaker))
	}

	args = append(args, topK)
	limitArg := fmt.Sprintf("$%d", len(args))

	q := fmt.Sprintf(`
		SELECT session_id, position, speaker, text,
		       embedding <=> $1 AS distance
		FROM   entry_vectors
		WHERE  %s
		ORDER  BY distance
		LIMIT  %s`, strings.Join(conditions, "\n  AND  "), limitArg)

	rows, err := a.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: search similar: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (archive.VectorResult, error) {
		var r archive.VectorResult
		err := row.Scan(&r.SessionID, &r.Position, &r.Speaker, &r.Text, &r.Distance)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("archive: search similar: scan rows: %w", err)
	}
	if results == nil {
		results = []archive.VectorResult{}
	}
	return results, nil
}
