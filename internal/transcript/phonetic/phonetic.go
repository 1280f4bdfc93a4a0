// Package phonetic matches mis-transcribed words against a known list of
// technical terms using Double Metaphone phonetic encoding combined with
// Jaro-Winkler string similarity.
//
// Speech recognition reliably garbles domain vocabulary: "cache" arrives as
// "cash", "PostgreSQL" as "postgress", "TypeScript" as "type script". The
// matcher compares an input window (one word or a space-separated n-gram)
// against each term:
//
//   - Same word count: every aligned word pair must be phonetically
//     compatible, meaning the pair shares a Double Metaphone code or its
//     Jaro-Winkler similarity clears the pair threshold. The whole window
//     must then clear the window threshold, which becomes the match
//     confidence.
//
//   - More words than the term: the window only matches when its
//     space-stripped concatenation is nearly the term itself, the
//     split-compound case ("java script" for "JavaScript"). The join
//     threshold is deliberately strict so a window containing one real term
//     plus an unrelated neighbour never swallows the neighbour.
//
//   - Fewer words than the term: never a match. A single correctly spoken
//     word is not evidence for a longer phrase, so windows are never
//     expanded.
//
// Callers that match many windows against the same term list should build a
// [TermSet] once with [PrepareTerms] and use [Matcher.MatchPrepared].
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultWindowThreshold = 0.70
	defaultPairThreshold   = 0.80
	defaultJoinThreshold   = 0.92
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithWindowThreshold sets the minimum Jaro-Winkler similarity the full
// window must reach against a same-length term. Default: 0.70.
func WithWindowThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.windowThreshold = threshold
	}
}

// WithPairThreshold sets the minimum Jaro-Winkler similarity an aligned word
// pair must reach when the pair shares no Double Metaphone code. Default:
// 0.80.
func WithPairThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.pairThreshold = threshold
	}
}

// WithJoinThreshold sets the minimum Jaro-Winkler similarity between the
// space-stripped window and a shorter term for the split-compound match.
// Default: 0.92.
func WithJoinThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.joinThreshold = threshold
	}
}

// Matcher ranks known terms against transcribed words. All methods are safe
// for concurrent use; the Matcher is read-only after construction.
type Matcher struct {
	windowThreshold float64
	pairThreshold   float64
	joinThreshold   float64
}

// New returns a new [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		windowThreshold: defaultWindowThreshold,
		pairThreshold:   defaultPairThreshold,
		joinThreshold:   defaultJoinThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Prepared term sets
// ─────────────────────────────────────────────────────────────────────────────

// preparedTerm is one term with its tokenisation, concatenation, and
// per-token phonetic codes computed up front.
type preparedTerm struct {
	original string
	lowered  string
	joined   string
	tokens   []string
	codes    []map[string]struct{}
}

// TermSet holds a term list with phonetic codes precomputed, so that matching
// many input windows against the same list does not recompute them. A TermSet
// is read-only after construction and safe for concurrent use.
type TermSet struct {
	terms    []preparedTerm
	byLower  map[string]struct{}
	maxWords int
}

// PrepareTerms tokenises and phonetically encodes each term. Blank terms are
// dropped; duplicates are kept in list order.
func PrepareTerms(terms []string) *TermSet {
	ts := &TermSet{
		byLower: make(map[string]struct{}, len(terms)),
	}
	for _, term := range terms {
		lowered := strings.ToLower(strings.TrimSpace(term))
		if lowered == "" {
			continue
		}
		tokens := strings.Fields(lowered)
		codes := make([]map[string]struct{}, len(tokens))
		for i, tok := range tokens {
			codes[i] = codesFor(tok)
		}
		ts.terms = append(ts.terms, preparedTerm{
			original: strings.TrimSpace(term),
			lowered:  strings.Join(tokens, " "),
			joined:   strings.Join(tokens, ""),
			tokens:   tokens,
			codes:    codes,
		})
		ts.byLower[strings.Join(tokens, " ")] = struct{}{}
		if len(tokens) > ts.maxWords {
			ts.maxWords = len(tokens)
		}
	}
	return ts
}

// Len reports the number of terms in the set.
func (ts *TermSet) Len() int { return len(ts.terms) }

// MaxWords reports the largest word count of any term in the set, 0 when the
// set is empty. Callers use it to size n-gram windows.
func (ts *TermSet) MaxWords() int { return ts.maxWords }

// Contains reports whether the set holds term verbatim, compared
// case-insensitively with normalised spacing.
func (ts *TermSet) Contains(term string) bool {
	normalised := strings.Join(strings.Fields(strings.ToLower(term)), " ")
	_, ok := ts.byLower[normalised]
	return ok
}

// ─────────────────────────────────────────────────────────────────────────────
// Matching
// ─────────────────────────────────────────────────────────────────────────────

// Match finds the term from terms most similar to word. It is a convenience
// wrapper that prepares the term list on every call; see
// [Matcher.MatchPrepared] for the repeated-use path.
func (m *Matcher) Match(word string, terms []string) (corrected string, confidence float64, matched bool) {
	return m.MatchPrepared(word, PrepareTerms(terms))
}

// MatchPrepared finds the term from ts most similar to word, which may be a
// single word or a space-separated n-gram. The best-scoring term wins. When
// matched is false, corrected equals word unchanged and confidence is 0.
func (m *Matcher) MatchPrepared(word string, ts *TermSet) (corrected string, confidence float64, matched bool) {
	if ts == nil || ts.Len() == 0 || strings.TrimSpace(word) == "" {
		return word, 0, false
	}

	wordLower := strings.ToLower(strings.TrimSpace(word))
	wordTokens := strings.Fields(wordLower)
	wordCodes := make([]map[string]struct{}, len(wordTokens))
	for i, tok := range wordTokens {
		wordCodes[i] = codesFor(tok)
	}
	wordFull := strings.Join(wordTokens, " ")
	wordJoined := strings.Join(wordTokens, "")

	var (
		bestTerm  string
		bestScore float64
	)
	for _, pt := range ts.terms {
		score, ok := m.score(wordTokens, wordCodes, wordFull, wordJoined, pt)
		if ok && score > bestScore {
			bestTerm, bestScore = pt.original, score
		}
	}

	if bestTerm != "" {
		return bestTerm, bestScore, true
	}
	return word, 0, false
}

// score rates one window against one prepared term. ok is false when the
// window cannot match the term at the configured thresholds.
func (m *Matcher) score(tokens []string, codes []map[string]struct{}, full, joined string, pt preparedTerm) (float64, bool) {
	switch {
	case len(tokens) == len(pt.tokens):
		for i, tok := range tokens {
			if !m.pairCompatible(tok, codes[i], pt.tokens[i], pt.codes[i]) {
				return 0, false
			}
		}
		s := matchr.JaroWinkler(full, pt.lowered, false)
		if s < m.windowThreshold {
			return 0, false
		}
		return s, true

	case len(tokens) > len(pt.tokens):
		s := matchr.JaroWinkler(joined, pt.joined, false)
		if s < m.joinThreshold {
			return 0, false
		}
		return s, true

	default:
		// Fewer input words than the term: never expand.
		return 0, false
	}
}

// pairCompatible reports whether an aligned word pair is phonetically
// plausible: identical, sharing a Double Metaphone code, or similar enough by
// Jaro-Winkler.
func (m *Matcher) pairCompatible(a string, aCodes map[string]struct{}, b string, bCodes map[string]struct{}) bool {
	if a == b {
		return true
	}
	if codesOverlap(aCodes, bCodes) {
		return true
	}
	return matchr.JaroWinkler(a, b, false) >= m.pairThreshold
}

// codesFor returns the Double Metaphone codes of one token. Empty codes
// (produced when the word is too short or contains no consonants) are
// excluded.
func codesFor(token string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(token)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	// Iterate over the smaller set.
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
