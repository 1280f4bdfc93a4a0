// Package mock provides a test double for the report.Generator interface.
//
// Use Generator in controller tests to verify that report generation happens
// exactly once, after session close, with the final transcript.
package mock

import (
	"context"
	"sync"

	"github.com/prathish132002/Live-Interview-App-sub000/internal/report"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/turn"
)

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	// Ctx is the context passed to Generate.
	Ctx context.Context
	// Entries is a copy of the transcript passed to Generate.
	Entries []turn.Entry
}

// Generator is a mock implementation of report.Generator.
// Zero values cause Generate to return (nil, nil); set Report and Err to
// control the outcome.
type Generator struct {
	mu sync.Mutex

	// Report is returned by Generate when Err is nil.
	Report *report.Report

	// Err, if non-nil, is returned as the error from Generate.
	Err error

	// GenerateCalls records every invocation of Generate in order.
	GenerateCalls []GenerateCall
}

// Generate records the call and returns Report, Err.
func (g *Generator) Generate(ctx context.Context, entries []turn.Entry) (*report.Report, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make([]turn.Entry, len(entries))
	copy(cp, entries)
	g.GenerateCalls = append(g.GenerateCalls, GenerateCall{Ctx: ctx, Entries: cp})
	if g.Err != nil {
		return nil, g.Err
	}
	return g.Report, nil
}

// CallCount returns the number of recorded Generate calls. Thread-safe.
func (g *Generator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.GenerateCalls)
}

// Ensure Generator implements report.Generator at compile time.
var _ report.Generator = (*Generator)(nil)
