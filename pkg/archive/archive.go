// Package archive defines the persistence interfaces for finished interview
// sessions.
//
// Two concerns are split across two interfaces:
//
//   - [Store]: durable records of sessions, their ordered transcripts, and
//     their generated reports, plus keyword search over transcript text.
//   - [SemanticIndex]: per-entry embedding vectors supporting cross-session
//     similarity search ("answers that discussed consensus protocols").
//
// Archiving happens after a session closes and is best-effort: callers log
// failures and move on, a lost archive never fails the interview itself.
//
// Implementations must be safe for concurrent use.
package archive

import (
	"context"
	"time"
)

// Speaker labels used in archived entries.
const (
	SpeakerUser  = "user"
	SpeakerAgent = "agent"
)

// Session is the archived record of one finished interview.
type Session struct {
	// ID uniquely identifies the session, e.g. "itv-ada-20260825T091242Z".
	ID string

	// PersonaID names the interviewer persona that ran the session.
	PersonaID string

	// Candidate is the display name of the interviewee. May be empty.
	Candidate string

	// Model is the realtime model that conducted the interview.
	Model string

	// StartedAt is when the live session opened.
	StartedAt time.Time

	// EndedAt is when the live session closed.
	EndedAt time.Time
}

// Entry is one committed transcript line within a session.
type Entry struct {
	// Position is the zero-based order of this entry within its session.
	Position int

	// Speaker is SpeakerUser or SpeakerAgent.
	Speaker string

	// Text is the committed, corrected transcript text. Never empty.
	Text string
}

// ReportRecord is the stored form of a generated interview report.
type ReportRecord struct {
	// Score is the overall interview score, 0 to 100.
	Score int

	// Summary is the free-text assessment.
	Summary string

	// Strengths lists observed strengths.
	Strengths []string

	// Improvements lists suggested improvement areas.
	Improvements []string

	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time
}

// SearchOpts narrows a keyword search over archived entries. All non-zero
// fields are applied as AND conditions.
type SearchOpts struct {
	// SessionID restricts the search to one session. Empty searches all.
	SessionID string

	// Speaker restricts results to one speaker label. Empty matches both.
	Speaker string

	// Limit caps the number of results. 0 lets the implementation pick a
	// default.
	Limit int
}

// Hit is one keyword-search result.
type Hit struct {
	// SessionID is the session the matching entry belongs to.
	SessionID string

	// Entry is the matching transcript line.
	Entry Entry

	// Rank is the implementation's relevance score; higher is better.
	Rank float64
}

// IndexedEntry is a transcript line plus its embedding vector, ready for the
// semantic index. Keyed by (SessionID, Position).
type IndexedEntry struct {
	SessionID string
	Position  int
	Speaker   string
	Text      string

	// Embedding must have the dimensionality the index was configured with.
	Embedding []float32
}

// VectorFilter narrows a similarity search. All non-zero fields are applied
// as AND conditions.
type VectorFilter struct {
	// SessionID restricts results to one session.
	SessionID string

	// ExcludeSessionID drops results from one session, typically the one the
	// query text came from.
	ExcludeSessionID string

	// Speaker restricts results to one speaker label.
	Speaker string
}

// VectorResult is one similarity-search result. The stored vector itself is
// not returned.
type VectorResult struct {
	SessionID string
	Position  int
	Speaker   string
	Text      string

	// Distance is the cosine distance to the query vector; lower is more
	// similar.
	Distance float64
}

// Store persists sessions, transcripts, and reports.
type Store interface {
	// SaveSession upserts the session record by ID.
	SaveSession(ctx context.Context, s Session) error

	// SaveEntries replaces the archived transcript for sessionID with
	// entries. Positions are assigned from slice order; the Position field
	// on the inputs is ignored. Calling again with a longer transcript
	// (after a reconnect that carried entries forward) is safe.
	SaveEntries(ctx context.Context, sessionID string, entries []Entry) error

	// SaveReport upserts the report for sessionID.
	SaveReport(ctx context.Context, sessionID string, rec ReportRecord) error

	// GetSession retrieves one session by ID. Returns (nil, nil) when the
	// session does not exist.
	GetSession(ctx context.Context, id string) (*Session, error)

	// GetEntries returns the transcript for sessionID in position order.
	// Returns an empty (non-nil) slice when none exist.
	GetEntries(ctx context.Context, sessionID string) ([]Entry, error)

	// GetReport retrieves the report for sessionID. Returns (nil, nil) when
	// no report has been stored.
	GetReport(ctx context.Context, sessionID string) (*ReportRecord, error)

	// ListSessions returns up to limit sessions, newest StartedAt first.
	// 0 lets the implementation pick a default.
	ListSessions(ctx context.Context, limit int) ([]Session, error)

	// Search performs a keyword search over entry text. Returns an empty
	// (non-nil) slice when nothing matches, ordered by descending Rank.
	Search(ctx context.Context, query string, opts SearchOpts) ([]Hit, error)
}

// SemanticIndex stores per-entry embeddings and answers similarity queries.
//
// An index is bound to one embedding model; vectors produced by a different
// model live in a different space and are never returned by SearchSimilar.
// Callers produce embeddings themselves before indexing or querying.
type SemanticIndex interface {
	// IndexEntry upserts one entry's vector, keyed by (SessionID, Position).
	IndexEntry(ctx context.Context, e IndexedEntry) error

	// SearchSimilar returns the topK entries nearest to embedding by cosine
	// distance, most similar first, filtered by filter. 0 lets the
	// implementation pick a default. Returns an empty (non-nil) slice when
	// nothing matches.
	SearchSimilar(ctx context.Context, embedding []float32, topK int, filter VectorFilter) ([]VectorResult, error)
}
