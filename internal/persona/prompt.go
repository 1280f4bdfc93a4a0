package persona

import (
	"fmt"
	"strings"
)

// Vars holds the per-session values rendered into a persona's system prompt.
// All fields are optional; empty values omit their lines.
type Vars struct {
	// Candidate is the display name of the person being interviewed.
	Candidate string

	// Position is the role the interview is for.
	Position string
}

// SystemPrompt renders the full system instruction string for a live session
// from the persona's instruction body and the given session values.
//
// The formatter is pure: it performs no I/O, has no side effects, and is safe
// for concurrent use. Empty sections (no session details, no terms) are
// omitted entirely rather than rendering as empty headers.
func (p *Persona) SystemPrompt(v Vars) string {
	var sb strings.Builder

	// ── Opening line ──────────────────────────────────────────────────────────
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "an interviewer"
	}
	fmt.Fprintf(&sb, "You are %s, conducting a live spoken interview.", name)

	if body := strings.TrimSpace(p.Instructions); body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(body)
	}

	// ── Session details section ───────────────────────────────────────────────
	var details []string
	if c := strings.TrimSpace(v.Candidate); c != "" {
		details = append(details, "Candidate: "+c)
	}
	if pos := strings.TrimSpace(v.Position); pos != "" {
		details = append(details, "Position: "+pos)
	}
	if len(details) > 0 {
		sb.WriteString("\n\n## This Interview\n")
		sb.WriteString(strings.Join(details, "\n"))
	}

	// ── Topic vocabulary section ──────────────────────────────────────────────
	if terms := cleanTerms(p.Terms); len(terms) > 0 {
		sb.WriteString("\n\n## Expected Topics\n")
		sb.WriteString("The conversation will likely touch on: ")
		sb.WriteString(strings.Join(terms, ", "))
		sb.WriteString(".")
	}

	return sb.String()
}

// cleanTerms trims the term list and drops blank entries.
func cleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
