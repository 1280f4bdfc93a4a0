// Package report turns a finished interview transcript into a structured
// evaluation.
//
// The [Generator] is invoked once per session, after the session has closed
// and the transcript is final. [LLMGenerator] is the production
// implementation: it renders the transcript into a bounded prompt, asks an
// [llm.Provider] for a JSON evaluation, and parses the reply into a
// [Report]. Sessions that end with an empty transcript never reach a
// generator; callers use [Placeholder] instead.
package report

import (
	"context"

	"github.com/prathish132002/Live-Interview-App-sub000/internal/turn"
)

// Report is the structured evaluation of one interview session.
type Report struct {
	// Score is the overall interview score in [0, 100].
	Score int `json:"score"`

	// Summary is a short prose evaluation of the whole interview.
	Summary string `json:"summary"`

	// Strengths lists what the candidate did well.
	Strengths []string `json:"strengths"`

	// Improvements lists concrete areas to work on.
	Improvements []string `json:"improvements"`
}

// Generator produces a [Report] from a completed transcript.
//
// Implementations must be safe for concurrent use and must return a non-nil
// report whenever the error is nil; the engine calls Generate at most once
// per session.
type Generator interface {
	Generate(ctx context.Context, entries []turn.Entry) (*Report, error)
}

// Placeholder returns the deterministic report used when a session ends with
// an empty transcript. The slices are non-nil so the report renders and
// archives the same way a generated one does.
func Placeholder() *Report {
	return &Report{
		Score:        0,
		Summary:      "No interview content was captured in this session.",
		Strengths:    []string{},
		Improvements: []string{},
	}
}
