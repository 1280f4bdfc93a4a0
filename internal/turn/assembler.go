// Package turn assembles streaming partial transcription fragments into an
// ordered conversation transcript.
//
// A live session delivers text as interleaved partial fragments: the user's
// speech via input transcription and the agent's reply via output
// transcription. An [Assembler] accumulates fragments per direction in a
// pending buffer and commits them to the transcript when the remote agent
// signals a turn boundary. Within every commit the user entry precedes the
// agent entry, so the transcript reads in natural conversational order no
// matter how the fragments interleaved on the wire.
//
// One session owns exactly one Assembler. Methods are safe for concurrent
// use; a single mutex serializes all state transitions, which preserves
// fragment order per direction.
package turn

import (
	"fmt"
	"strings"
	"sync"
)

// ─────────────────────────────────────────────────────────────────────────────
// Transcript types
// ─────────────────────────────────────────────────────────────────────────────

// Speaker identifies which side of the conversation produced an [Entry].
type Speaker string

const (
	// User is the human side of the session (microphone input).
	User Speaker = "user"

	// Agent is the remote model side of the session.
	Agent Speaker = "agent"
)

// Entry is one committed transcript entry. Entries are immutable once
// appended; their text is trimmed and never empty.
type Entry struct {
	Speaker Speaker
	Text    string
}

// State is the lifecycle state of an [Assembler].
type State int

const (
	// StateIdle is the initial state; fragments are discarded until Start.
	StateIdle State = iota

	// StateActive accepts fragments and turn boundaries.
	StateActive

	// StateDraining is the transient state while Stop flushes the pending
	// buffers.
	StateDraining

	// StateClosed is terminal; all further events are ignored.
	StateClosed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Assembler
// ─────────────────────────────────────────────────────────────────────────────

// Option is a functional option for [New].
type Option func(*Assembler)

// WithBargeIn registers fn to be invoked whenever agent activity arrives
// while the assembler is active: on [Assembler.ModelTurnActivity] and on
// every [Assembler.PartialOutput] fragment. Sessions wire this to the signal
// conditioner's EndSpeech so the user's speaking flag clears as soon as the
// agent starts responding, even without a gate closure. The hook is called
// without the assembler lock held.
func WithBargeIn(fn func()) Option {
	return func(a *Assembler) { a.bargeIn = fn }
}

// WithOnTurnCommitted registers fn to be invoked after each commit with the
// entries that commit appended, in order. Commits that append nothing do not
// fire the hook. Callers use this to stream the transcript live or reset a
// per-turn countdown. The hook is called without the assembler lock held.
func WithOnTurnCommitted(fn func(entries []Entry)) Option {
	return func(a *Assembler) { a.onCommitted = fn }
}

// WithCorrector registers a correction function applied to the user's text at
// commit time, after trimming. Agent text is produced by the model itself and
// is left untouched. fn must be pure and must not call back into the
// Assembler. A correction that leaves the text empty suppresses the entry.
func WithCorrector(fn func(string) string) Option {
	return func(a *Assembler) { a.correct = fn }
}

// WithTranscript seeds the committed transcript, used when a session resumes
// after a reconnect and the earlier conversation carries forward. The slice
// is copied.
func WithTranscript(entries []Entry) Option {
	return func(a *Assembler) {
		a.entries = make([]Entry, len(entries))
		copy(a.entries, entries)
	}
}

// Assembler reconciles asynchronous partial transcription events and
// turn-boundary signals into an ordered transcript.
type Assembler struct {
	bargeIn     func()
	onCommitted func([]Entry)
	correct     func(string) string

	mu         sync.Mutex
	state      State
	inputText  strings.Builder
	outputText strings.Builder
	entries    []Entry
}

// New creates an idle [Assembler]. Options are applied in order.
func New(opts ...Option) *Assembler {
	a := &Assembler{state: StateIdle}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start transitions the assembler from Idle to Active. Sessions call Start
// once the transport is open; fragments arriving earlier are discarded.
// Calling Start in any other state is a no-op.
func (a *Assembler) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateIdle {
		a.state = StateActive
	}
}

// State reports the current lifecycle state.
func (a *Assembler) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// PartialInput appends a fragment of the user's transcribed speech to the
// pending turn. Fragments outside the Active state are discarded.
func (a *Assembler) PartialInput(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateActive {
		return
	}
	a.inputText.WriteString(text)
}

// PartialOutput appends a fragment of the agent's transcribed reply to the
// pending turn. Agent text is also model-turn activity, so the barge-in hook
// fires exactly as for [Assembler.ModelTurnActivity]. Fragments outside the
// Active state are discarded.
func (a *Assembler) PartialOutput(text string) {
	a.mu.Lock()
	if a.state != StateActive {
		a.mu.Unlock()
		return
	}
	a.outputText.WriteString(text)
	a.mu.Unlock()

	if a.bargeIn != nil {
		a.bargeIn()
	}
}

// ModelTurnActivity signals that agent audio has started arriving. The
// user's turn is considered over even absent a gate closure, so the barge-in
// hook fires to clear the speaking flag. Pending text is not committed
// early; the transcript waits for the explicit turn boundary. Ignored
// outside the Active state.
func (a *Assembler) ModelTurnActivity() {
	a.mu.Lock()
	active := a.state == StateActive
	a.mu.Unlock()

	if active && a.bargeIn != nil {
		a.bargeIn()
	}
}

// TurnComplete commits the pending turn: both buffers are trimmed, each
// non-empty buffer becomes one transcript entry with the user entry first,
// and both buffers are cleared. Ignored outside the Active state.
func (a *Assembler) TurnComplete() {
	a.mu.Lock()
	if a.state != StateActive {
		a.mu.Unlock()
		return
	}
	committed := a.commitLocked()
	a.mu.Unlock()

	a.notifyCommitted(committed)
}

// Stop flushes any non-empty pending buffers as final transcript entries,
// with the same user-then-agent ordering as a regular commit, and closes the
// assembler. Closed is terminal: Stop and all other events become no-ops.
func (a *Assembler) Stop() {
	a.mu.Lock()
	if a.state == StateClosed {
		a.mu.Unlock()
		return
	}
	a.state = StateDraining
	committed := a.commitLocked()
	a.state = StateClosed
	a.mu.Unlock()

	a.notifyCommitted(committed)
}

// Entries returns a copy of the committed transcript in chronological order.
func (a *Assembler) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len reports the number of committed transcript entries.
func (a *Assembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// commitLocked drains both pending buffers into transcript entries, user
// before agent, skipping empty post-trim text. It returns the entries
// appended by this commit. Callers must hold a.mu.
func (a *Assembler) commitLocked() []Entry {
	userText := strings.TrimSpace(a.inputText.String())
	agentText := strings.TrimSpace(a.outputText.String())
	a.inputText.Reset()
	a.outputText.Reset()

	if userText != "" && a.correct != nil {
		userText = strings.TrimSpace(a.correct(userText))
	}

	var committed []Entry
	if userText != "" {
		committed = append(committed, Entry{Speaker: User, Text: userText})
	}
	if agentText != "" {
		committed = append(committed, Entry{Speaker: Agent, Text: agentText})
	}
	a.entries = append(a.entries, committed...)
	return committed
}

// notifyCommitted fires the turn-committed hook for a non-empty commit.
// Callers must not hold a.mu.
func (a *Assembler) notifyCommitted(committed []Entry) {
	if a.onCommitted != nil && len(committed) > 0 {
		a.onCommitted(committed)
	}
}
