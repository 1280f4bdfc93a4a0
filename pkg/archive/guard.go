package archive

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Guard wraps a [Store] and makes all operations non-fatal. If the
// underlying store fails, operations return defaults and log warnings
// instead of propagating errors.
//
// This keeps the interview pipeline running when the archive backend is
// temporarily unavailable (database restart, network partition): the session
// and its report still complete, only the archival record is lost. The
// IsDegraded method reports whether the store is currently experiencing
// failures.
//
// Guard implements [Store]. All methods are safe for concurrent use.
type Guard struct {
	store    Store
	degraded atomic.Bool
}

// NewGuard creates a [Guard] wrapping the given store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// SaveSession attempts to persist the session record. On failure the error
// is logged and swallowed; the store is marked as degraded. On success the
// degraded flag is cleared.
func (g *Guard) SaveSession(ctx context.Context, s Session) error {
	if err := g.store.SaveSession(ctx, s); err != nil {
		g.degraded.Store(true)
		slog.Warn("archive guard: SaveSession failed, swallowing error",
			"session_id", s.ID,
			"error", err,
		)
		return nil
	}
	g.degraded.Store(false)
	return nil
}

// SaveEntries attempts to persist the transcript. On failure the error is
// logged and swallowed; the store is marked as degraded.
func (g *Guard) SaveEntries(ctx context.Context, sessionID string, entries []Entry) error {
	if err := g.store.SaveEntries(ctx, sessionID, entries); err != nil {
		g.degraded.Store(true)
		slog.Warn("archive guard: SaveEntries failed, swallowing error",
			"session_id", sessionID,
			"entries", len(entries),
			"error", err,
		)
		return nil
	}
	g.degraded.Store(false)
	return nil
}

// SaveReport attempts to persist the report. On failure the error is logged
// and swallowed; the store is marked as degraded.
func (g *Guard) SaveReport(ctx context.Context, sessionID string, rec ReportRecord) error {
	if err := g.store.SaveReport(ctx, sessionID, rec); err != nil {
		g.degraded.Store(true)
		slog.Warn("archive guard: SaveReport failed, swallowing error",
			"session_id", sessionID,
			"error", err,
		)
		return nil
	}
	g.degraded.Store(false)
	return nil
}

// GetSession attempts to read a session. On failure nil is returned and the
// store is marked as degraded.
func (g *Guard) GetSession(ctx context.Context, id string) (*Session, error) {
	s, err := g.store.GetSession(ctx, id)
	if err != nil {
		g.degraded.Store(true)
		slog.Warn("archive guard: GetSession failed, returning nil",
			"session_id", id,
			"error", err,
		)
		return nil, nil
	}
	g.degraded.Store(false)
	return s, nil
}

// GetEntries attempts to read a transcript. On failure an empty slice is
// returned and the store is marked as degraded.
func (g *Guard) GetEntries(ctx context.Context, sessionID string) ([]Entry, error) {
	entries, err := g.store.GetEntries(ctx, sessionID)
	if err != nil {
		g.degraded.Store(true)
		slog.Warn("archive guard: GetEntries failed, returning empty",
			"session_id", sessionID,
			"error", err,
		)
		return []Entry{}, nil
	}
	g.degraded.Store(false)
	return entries, nil
}

// GetReport attempts to read a report. On failure nil is returned and the
// store is marked as degraded.
func (g *Guard) GetReport(ctx context.Context, sessionID string) (*ReportRecord, error) {
	rec, err := g.store.GetReport(ctx, sessionID)
	if err != nil {
		g.degraded.Store(true)
		slog.Warn("archive guard: GetReport failed, returning nil",
			"session_id", sessionID,
			"error", err,
		)
		return nil, nil
	}
	g.degraded.Store(false)
	return rec, nil
}

// ListSessions attempts to list sessions. On failure an empty slice is
// returned and the store is marked as degraded.
func (g *Guard) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	sessions, err := g.store.ListSessions(ctx, limit)
	if err != nil {
		g.degraded.Store(true)
		slog.Warn("archive guard: ListSessions failed, returning empty", "error", err)
		return []Session{}, nil
	}
	g.degraded.Store(false)
	return sessions, nil
}

// Search attempts a keyword search. On failure an empty slice is returned
// and the store is marked as degraded.
func (g *Guard) Search(ctx context.Context, query string, opts SearchOpts) ([]Hit, error) {
	hits, err := g.store.Search(ctx, query, opts)
	if err != nil {
		g.degraded.Store(true)
		slog.Warn("archive guard: Search failed, returning empty",
			"query", query,
			"error", err,
		)
		return []Hit{}, nil
	}
	g.degraded.Store(false)
	return hits, nil
}

// IsDegraded reports whether the store is currently operating in degraded
// mode (the most recent operation on the underlying store failed).
func (g *Guard) IsDegraded() bool {
	return g.degraded.Load()
}

// Compile-time check that Guard satisfies Store.
var _ Store = (*Guard)(nil)
