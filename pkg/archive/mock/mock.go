// Package mock provides an in-memory test double for the archive interfaces.
//
// Archive records every method call for assertion in tests and exposes
// exported fields that control what each method returns. Safe for concurrent
// use via an internal [sync.Mutex].
//
// Typical usage:
//
//	arch := &mock.Archive{}
//
//	// inject arch into the system under test …
//
//	if got := arch.CallCount("SaveSession"); got != 1 {
//	    t.Errorf("expected 1 SaveSession call, got %d", got)
//	}
package mock

import (
	"context"
	"sync"

	"github.com/prathish132002/Live-Interview-App-sub000/pkg/archive"
)

// Call records the name and arguments of a single method invocation.
type Call struct {
	// Method is the name of the interface method that was called.
	Method string

	// Args holds the non-context arguments passed to the method, in order.
	Args []any
}

// Archive is a configurable test double implementing both [archive.Store]
// and [archive.SemanticIndex]. All *Err fields default to nil (success); all
// *Result fields default to nil (empty non-nil slice, or nil pointer, as the
// interface specifies).
type Archive struct {
	mu sync.Mutex

	calls []Call

	// ── Store configuration ──

	// SaveSessionErr is returned by SaveSession when non-nil.
	SaveSessionErr error

	// SaveEntriesErr is returned by SaveEntries when non-nil.
	SaveEntriesErr error

	// SaveReportErr is returned by SaveReport when non-nil.
	SaveReportErr error

	// GetSessionResult is returned by GetSession. Nil means "not found".
	GetSessionResult *archive.Session

	// GetSessionErr is returned by GetSession when non-nil.
	GetSessionErr error

	// GetEntriesResult is returned by GetEntries. Nil returns an empty
	// non-nil slice.
	GetEntriesResult []archive.Entry

	// GetEntriesErr is returned by GetEntries when non-nil.
	GetEntriesErr error

	// GetReportResult is returned by GetReport. Nil means "not found".
	GetReportResult *archive.ReportRecord

	// GetReportErr is returned by GetReport when non-nil.
	GetReportErr error

	// ListSessionsResult is returned by ListSessions. Nil returns an empty
	// non-nil slice.
	ListSessionsResult []archive.Session

	// ListSessionsErr is returned by ListSessions when non-nil.
	ListSessionsErr error

	// SearchResult is returned by Search. Nil returns an empty non-nil
	// slice.
	SearchResult []archive.Hit

	// SearchErr is returned by Search when non-nil.
	SearchErr error

	// ── SemanticIndex configuration ──

	// IndexEntryErr is returned by IndexEntry when non-nil.
	IndexEntryErr error

	// SearchSimilarResult is returned by SearchSimilar. Nil returns an
	// empty non-nil slice.
	SearchSimilarResult []archive.VectorResult

	// SearchSimilarErr is returned by SearchSimilar when non-nil.
	SearchSimilarErr error
}

var (
	_ archive.Store         = (*Archive)(nil)
	_ archive.SemanticIndex = (*Archive)(nil)
)

// Calls returns a copy of all recorded method invocations.
func (m *Archive) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
func (m *Archive) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears all recorded calls without altering response configuration.
func (m *Archive) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *Archive) record(method string, args ...any) {
	m.calls = append(m.calls, Call{Method: method, Args: args})
}

// ─────────────────────────────────────────────────────────────────────────────
// Store
// ─────────────────────────────────────────────────────────────────────────────

// SaveSession implements [archive.Store].
func (m *Archive) SaveSession(_ context.Context, s archive.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SaveSession", s)
	return m.SaveSessionErr
}

// SaveEntries implements [archive.Store]. The entries slice is copied.
func (m *Archive) SaveEntries(_ context.Context, sessionID string, entries []archive.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]archive.Entry, len(entries))
	copy(cp, entries)
	m.record("SaveEntries", sessionID, cp)
	return m.SaveEntriesErr
}

// SaveReport implements [archive.Store].
func (m *Archive) SaveReport(_ context.Context, sessionID string, rec archive.ReportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SaveReport", sessionID, rec)
	return m.SaveReportErr
}

// GetSession implements [archive.Store].
func (m *Archive) GetSession(_ context.Context, id string) (*archive.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetSession", id)
	return m.GetSessionResult, m.GetSessionErr
}

// GetEntries implements [archive.Store].
func (m *Archive) GetEntries(_ context.Context, sessionID string) ([]archive.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetEntries", sessionID)
	if m.GetEntriesResult == nil {
		return []archive.Entry{}, m.GetEntriesErr
	}
	out := make([]archive.Entry, len(m.GetEntriesResult))
	copy(out, m.GetEntriesResult)
	return out, m.GetEntriesErr
}

// GetReport implements [archive.Store].
func (m *Archive) GetReport(_ context.Context, sessionID string) (*archive.ReportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetReport", sessionID)
	return m.GetReportResult, m.GetReportErr
}

// ListSessions implements [archive.Store].
func (m *Archive) ListSessions(_ context.Context, limit int) ([]archive.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListSessions", limit)
	if m.ListSessionsResult == nil {
		return []archive.Session{}, m.ListSessionsErr
	}
	out := make([]archive.Session, len(m.ListSessionsResult))
	copy(out, m.ListSessionsResult)
	return out, m.ListSessionsErr
}

// Search implements [archive.Store].
func (m *Archive) Search(_ context.Context, query string, opts archive.SearchOpts) ([]archive.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Search", query, opts)
	if m.SearchResult == nil {
		return []archive.Hit{}, m.SearchErr
	}
	out := make([]archive.Hit, len(m.SearchResult))
	copy(out, m.SearchResult)
	return out, m.SearchErr
}

// ─────────────────────────────────────────────────────────────────────────────
// SemanticIndex
// ─────────────────────────────────────────────────────────────────────────────

// IndexEntry implements [archive.SemanticIndex]. The embedding is copied.
func (m *Archive) IndexEntry(_ context.Context, e archive.IndexedEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := e
	cp.Embedding = make([]float32, len(e.Embedding))
	copy(cp.Embedding, e.Embedding)
	m.record("IndexEntry", cp)
	return m.IndexEntryErr
}

// SearchSimilar implements [archive.SemanticIndex].
func (m *Archive) SearchSimilar(_ context.Context, embedding []float32, topK int, filter archive.VectorFilter) ([]archive.VectorResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]float32, len(embedding))
	copy(cp, embedding)
	m.record("SearchSimilar", cp, topK, filter)
	if m.SearchSimilarResult == nil {
		return []archive.VectorResult{}, m.SearchSimilarErr
	}
	out := make([]archive.VectorResult, len(m.SearchSimilarResult))
	copy(out, m.SearchSimilarResult)
	return out, m.SearchSimilarErr
}
