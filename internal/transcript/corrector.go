// Package transcript corrects mis-transcribed technical vocabulary in
// interview transcripts.
//
// Live transcription is rarely perfect for domain terms: tool names,
// protocols, and architecture vocabulary are frequently misheard ("cash" for
// "cache", "post gress" for "PostgreSQL"). A [Corrector] built from the
// interview's term list repairs those at turn-commit time using phonetic
// matching. Correction is pure and in-process, fast enough to run
// synchronously inside a commit, and only as precise as the term list is
// specific: generic words make poor terms.
//
// Each [Correction] records the substitution and its confidence so callers
// can audit or log what changed.
package transcript

import (
	"strings"
	"unicode"

	"github.com/prathish132002/Live-Interview-App-sub000/internal/transcript/phonetic"
)

// Correction captures a single window-level substitution.
type Correction struct {
	// Original is the window text as transcribed, without surrounding
	// punctuation.
	Original string

	// Corrected is the term that replaced it, in the term list's casing.
	Corrected string

	// Confidence is the match score (0.0 to 1.0). Values near 1.0 are
	// near-exact; values near the matcher's window threshold are speculative.
	Confidence float64
}

// Result pairs the original text with the corrected text and an itemised
// record of every substitution applied.
type Result struct {
	Original  string
	Corrected string

	// Corrections is ordered by position in the text. Empty (non-nil) when
	// nothing changed.
	Corrections []Correction
}

// Option is a functional option for [NewCorrector].
type Option func(*Corrector)

// WithMatcher replaces the default [phonetic.Matcher], e.g. to tune
// thresholds.
func WithMatcher(m *phonetic.Matcher) Option {
	return func(c *Corrector) { c.matcher = m }
}

// Corrector applies phonetic term correction to transcript text. It is
// read-only after construction and safe for concurrent use.
type Corrector struct {
	matcher *phonetic.Matcher
	terms   *phonetic.TermSet
	maxN    int
}

// NewCorrector builds a Corrector for the given term list. Blank terms are
// ignored; an empty list yields a Corrector that passes text through
// unchanged.
func NewCorrector(terms []string, opts ...Option) *Corrector {
	c := &Corrector{
		matcher: phonetic.New(),
		terms:   phonetic.PrepareTerms(terms),
	}
	for _, o := range opts {
		o(c)
	}
	// Windows of at least two words are always probed so split compounds
	// ("java script") correct even when every term is a single word.
	c.maxN = c.terms.MaxWords()
	if c.maxN < 2 {
		c.maxN = 2
	}
	return c
}

// Correct returns text with term corrections applied. It is the form wired
// into the turn assembler.
func (c *Corrector) Correct(text string) string {
	return c.Apply(text).Corrected
}

// Apply corrects text and reports every substitution.
//
// The text is split into whitespace-separated tokens. At each position,
// n-gram windows are tried longest-first: a window equal to a known term
// passes through untouched, otherwise the window is matched phonetically and
// replaced by the winning term. Leading and trailing punctuation of the
// window survives the replacement. Inter-token whitespace is normalised to
// single spaces.
func (c *Corrector) Apply(text string) Result {
	result := Result{
		Original:    text,
		Corrected:   text,
		Corrections: []Correction{},
	}
	if c.terms.Len() == 0 {
		return result
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return result
	}

	leads := make([]string, len(tokens))
	cores := make([]string, len(tokens))
	trails := make([]string, len(tokens))
	for i, tok := range tokens {
		leads[i], cores[i], trails[i] = splitToken(tok)
	}

	out := make([]string, 0, len(tokens))

	i := 0
	for i < len(tokens) {
		if cores[i] == "" {
			out = append(out, tokens[i])
			i++
			continue
		}

		maxN := c.maxN
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		consumed := 0
		for n := maxN; n >= 1; n-- {
			window, ok := joinCores(cores[i : i+n])
			if !ok {
				continue
			}

			// A window that already is a term needs no correction.
			if c.terms.Contains(window) {
				out = append(out, tokens[i:i+n]...)
				consumed = n
				break
			}

			term, conf, matched := c.matcher.MatchPrepared(window, c.terms)
			if !matched {
				continue
			}

			repl := strings.Fields(term)
			repl[0] = leads[i] + repl[0]
			repl[len(repl)-1] += trails[i+n-1]
			out = append(out, repl...)
			result.Corrections = append(result.Corrections, Correction{
				Original:   window,
				Corrected:  term,
				Confidence: conf,
			})
			consumed = n
			break
		}

		if consumed == 0 {
			out = append(out, tokens[i])
			consumed = 1
		}
		i += consumed
	}

	result.Corrected = strings.Join(out, " ")
	return result
}

// joinCores joins a window of token cores with single spaces. ok is false
// when the window spans a punctuation-only token.
func joinCores(cores []string) (string, bool) {
	for _, core := range cores {
		if core == "" {
			return "", false
		}
	}
	return strings.Join(cores, " "), true
}

// splitToken separates leading and trailing punctuation from the word core.
// Interior punctuation (apostrophes, dots in names like "socket.io") stays
// part of the core.
func splitToken(tok string) (lead, core, trail string) {
	core = strings.TrimLeftFunc(tok, isEdgePunct)
	lead = tok[:len(tok)-len(core)]
	trimmed := strings.TrimRightFunc(core, isEdgePunct)
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}

func isEdgePunct(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
