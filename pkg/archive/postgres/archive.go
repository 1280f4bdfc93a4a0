package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/prathish132002/Live-Interview-App-sub000/pkg/archive"
)

var (
	_ archive.Store         = (*Archive)(nil)
	_ archive.SemanticIndex = (*Archive)(nil)
)

// defaultListLimit applies when ListSessions or Search is called with a
// non-positive limit.
const defaultListLimit = 50

// Archive is the PostgreSQL-backed interview archive. One Archive implements
// both [archive.Store] and [archive.SemanticIndex] over a shared pool.
//
// All operations are safe for concurrent use.
type Archive struct {
	pool *pgxpool.Pool

	// dims and model bind the semantic index to one embedding space.
	dims  int
	model string
}

// New connects to the PostgreSQL database at dsn, registers pgvector types on
// every connection, and runs [Migrate].
//
// embeddingDimensions and embeddingModel bind the semantic index to one
// embedding space: IndexEntry rejects vectors of any other length and
// SearchSimilar only ever matches vectors stored under the same model.
func New(ctx context.Context, dsn string, embeddingDimensions int, embeddingModel string) (*Archive, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so vector columns scan
	// into and insert from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("archive: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}

	return &Archive{pool: pool, dims: embeddingDimensions, model: embeddingModel}, nil
}

// Close releases all connections held by the pool.
func (a *Archive) Close() {
	a.pool.Close()
}

// Ping verifies the database is reachable. Used by readiness probes.
func (a *Archive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// Store — sessions
// ─────────────────────────────────────────────────────────────────────────────

// SaveSession implements [archive.Store] as an upsert by session ID.
func (a *Archive) SaveSession(ctx context.Context, s archive.Session) error {
	const q = `
		INSERT INTO sessions (id, persona_id, candidate, model, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
		    persona_id = EXCLUDED.persona_id,
		    candidate  = EXCLUDED.candidate,
		    model      = EXCLUDED.model,
		    started_at = EXCLUDED.started_at,
		    ended_at   = EXCLUDED.ended_at`

	_, err := a.pool.Exec(ctx, q, s.ID, s.PersonaID, s.Candidate, s.Model, s.StartedAt, s.EndedAt)
	if err != nil {
		return fmt.Errorf("archive: save session: %w", err)
	}
	return nil
}

// GetSession implements [archive.Store]. Returns (nil, nil) when the session
// does not exist.
func (a *Archive) GetSession(ctx context.Context, id string) (*archive.Session, error) {
	const q = `
		SELECT id, persona_id, candidate, model, started_at, ended_at
		FROM   sessions
		WHERE  id = $1`

	rows, err := a.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("archive: get session: %w", err)
	}
	s, err := pgx.CollectOneRow(rows, scanSession)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: get session: %w", err)
	}
	return &s, nil
}

// ListSessions implements [archive.Store], newest StartedAt first.
func (a *Archive) ListSessions(ctx context.Context, limit int) ([]archive.Session, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const q = `
		SELECT id, persona_id, candidate, model, started_at, ended_at
		FROM   sessions
		ORDER  BY started_at DESC
		LIMIT  $1`

	rows, err := a.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list sessions: %w", err)
	}
	sessions, err := pgx.CollectRows(rows, scanSession)
	if err != nil {
		return nil, fmt.Errorf("archive: list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []archive.Session{}
	}
	return sessions, nil
}

func scanSession(row pgx.CollectableRow) (archive.Session, error) {
	var s archive.Session
	err := row.Scan(&s.ID, &s.PersonaID, &s.Candidate, &s.Model, &s.StartedAt, &s.EndedAt)
	return s, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Store — entries
// ─────────────────────────────────────────────────────────────────────────────

// SaveEntries implements [archive.Store]. The existing transcript for
// sessionID is replaced in one transaction; positions come from slice order.
func (a *Archive) SaveEntries(ctx context.Context, sessionID string, entries []archive.Entry) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("archive: save entries: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM entries WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("archive: save entries: clear: %w", err)
	}

	batch := &pgx.Batch{}
	for i, e := range entries {
		batch.Queue(
			`INSERT INTO entries (session_id, position, speaker, text) VALUES ($1, $2, $3, $4)`,
			sessionID, i, e.Speaker, e.Text,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("archive: save entries: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("archive: save entries: commit: %w", err)
	}
	return nil
}

// GetEntries implements [archive.Store], in position order.
func (a *Archive) GetEntries(ctx context.Context, sessionID string) ([]archive.Entry, error) {
	const q = `
		SELECT position, speaker, text
		FROM   entries
		WHERE  session_id = $1
		ORDER  BY position`

	rows, err := a.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("archive: get entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (archive.Entry, error) {
		var e archive.Entry
		err := row.Scan(&e.Position, &e.Speaker, &e.Text)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("archive: get entries: %w", err)
	}
	if entries == nil {
		entries = []archive.Entry{}
	}
	return entries, nil
}

// Search implements [archive.Store]: PostgreSQL full-text search over entry
// text, ranked by ts_rank. The query goes through plainto_tsquery so no
// operator syntax is required.
func (a *Archive) Search(ctx context.Context, query string, opts archive.SearchOpts) ([]archive.Hit, error) {
	args := []any{query} // $1 = FTS query string
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{
		"to_tsvector('english', text) @@ plainto_tsquery('english', $1)",
	}
	if opts.SessionID != "" {
		conditions = append(conditions, "session_id = "+next(opts.SessionID))
	}
	if opts.Speaker != "" {
		conditions = append(conditions, "speaker = "+next(opts.Speaker))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)

	q := "SELECT session_id, position, speaker, text,\n" +
		"       ts_rank(to_tsvector('english', text), plainto_tsquery('english', $1)) AS rank\n" +
		"FROM   entries\n" +
		"WHERE  " + strings.Join(conditions, "\n  AND  ") + "\n" +
		"ORDER  BY rank DESC\n" +
		fmt.Sprintf("LIMIT  $%d", len(args))

	rows, err := a.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: search: %w", err)
	}
	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (archive.Hit, error) {
		var h archive.Hit
		err := row.Scan(&h.SessionID, &h.Entry.Position, &h.Entry.Speaker, &h.Entry.Text, &h.Rank)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("archive: search: %w", err)
	}
	if hits == nil {
		hits = []archive.Hit{}
	}
	return hits, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Store — reports
// ─────────────────────────────────────────────────────────────────────────────

// SaveReport implements [archive.Store] as an upsert by session ID.
func (a *Archive) SaveReport(ctx context.Context, sessionID string, rec archive.ReportRecord) error {
	const q = `
		INSERT INTO reports (session_id, score, summary, strengths, improvements, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET
		    score        = EXCLUDED.score,
		    summary      = EXCLUDED.summary,
		    strengths    = EXCLUDED.strengths,
		    improvements = EXCLUDED.improvements,
		    generated_at = EXCLUDED.generated_at`

	generatedAt := rec.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	_, err := a.pool.Exec(ctx, q,
		sessionID,
		rec.Score,
		rec.Summary,
		jsonStrings(rec.Strengths),
		jsonStrings(rec.Improvements),
		generatedAt,
	)
	if err != nil {
		return fmt.Errorf("archive: save report: %w", err)
	}
	return nil
}

// GetReport implements [archive.Store]. Returns (nil, nil) when no report
// has been stored for sessionID.
func (a *Archive) GetReport(ctx context.Context, sessionID string) (*archive.ReportRecord, error) {
	const q = `
		SELECT score, summary, strengths, improvements, generated_at
		FROM   reports
		WHERE  session_id = $1`

	rows, err := a.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("archive: get report: %w", err)
	}
	rec, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (archive.ReportRecord, error) {
		var r archive.ReportRecord
		err := row.Scan(&r.Score, &r.Summary, &r.Strengths, &r.Improvements, &r.GeneratedAt)
		return r, err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: get report: %w", err)
	}
	return &rec, nil
}

// jsonStrings normalizes a nil slice to an empty one so the JSONB column
// stores [] rather than null.
func jsonStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
