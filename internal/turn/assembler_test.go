package turn_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/prathish132002/Live-Interview-App-sub000/internal/turn"
)

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

// newActive creates an assembler and starts it.
func newActive(opts ...turn.Option) *turn.Assembler {
	a := turn.New(opts...)
	a.Start()
	return a
}

func assertEntries(t *testing.T, got, want []turn.Entry) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len(entries) = %d, want %d (got %v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entries[%d] = {%s %q}, want {%s %q}",
				i, got[i].Speaker, got[i].Text, want[i].Speaker, want[i].Text)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// tests
// ─────────────────────────────────────────────────────────────────────────────

// TestTurnComplete_OrderingUserThenAgent verifies that a commit always orders
// the user entry before the agent entry regardless of fragment interleaving.
func TestTurnComplete_OrderingUserThenAgent(t *testing.T) {
	a := newActive()

	a.PartialOutput("A")
	a.PartialInput("B")
	a.PartialOutput("C")
	a.TurnComplete()

	assertEntries(t, a.Entries(), []turn.Entry{
		{Speaker: turn.User, Text: "B"},
		{Speaker: turn.Agent, Text: "AC"},
	})
}

// TestTurnComplete_MultipleTurns verifies that successive commits append in
// chronological turn order and that each commit starts from empty buffers.
func TestTurnComplete_MultipleTurns(t *testing.T) {
	a := newActive()

	a.PartialOutput("Tell me about caching.")
	a.TurnComplete()

	a.PartialInput("I would use ")
	a.PartialInput("an LRU cache.")
	a.PartialOutput("Good. Why LRU?")
	a.TurnComplete()

	assertEntries(t, a.Entries(), []turn.Entry{
		{Speaker: turn.Agent, Text: "Tell me about caching."},
		{Speaker: turn.User, Text: "I would use an LRU cache."},
		{Speaker: turn.Agent, Text: "Good. Why LRU?"},
	})
}

// TestTurnComplete_TrimsWhitespace verifies that committed text is trimmed
// and that whitespace-only buffers commit nothing.
func TestTurnComplete_TrimsWhitespace(t *testing.T) {
	a := newActive()

	a.PartialInput("  hello ")
	a.PartialInput("world  ")
	a.PartialOutput("   \n\t")
	a.TurnComplete()

	assertEntries(t, a.Entries(), []turn.Entry{
		{Speaker: turn.User, Text: "hello world"},
	})
}

// TestTurnComplete_EmptyTurn verifies that a turn boundary with no pending
// text appends nothing and does not fire the committed hook.
func TestTurnComplete_EmptyTurn(t *testing.T) {
	var hookCalls int
	a := newActive(turn.WithOnTurnCommitted(func([]turn.Entry) { hookCalls++ }))

	a.TurnComplete()
	a.TurnComplete()

	if n := a.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
	if hookCalls != 0 {
		t.Errorf("committed hook fired %d times, want 0", hookCalls)
	}
}

// TestPartials_DiscardedOutsideActive verifies that fragments arriving before
// Start or after Stop never reach the transcript.
func TestPartials_DiscardedOutsideActive(t *testing.T) {
	a := turn.New()

	// Idle: discarded.
	a.PartialInput("too early")
	a.Start()

	a.PartialInput("on time")
	a.TurnComplete()

	a.Stop()

	// Closed: discarded, and the late boundary is a no-op.
	a.PartialInput("too late")
	a.TurnComplete()

	assertEntries(t, a.Entries(), []turn.Entry{
		{Speaker: turn.User, Text: "on time"},
	})
}

// TestStop_FlushesPending verifies that Stop commits the pending remainder
// with the usual user-then-agent ordering and closes the assembler.
func TestStop_FlushesPending(t *testing.T) {
	a := newActive()

	a.PartialOutput("And finally")
	a.PartialInput("One last thing")
	a.Stop()

	assertEntries(t, a.Entries(), []turn.Entry{
		{Speaker: turn.User, Text: "One last thing"},
		{Speaker: turn.Agent, Text: "And finally"},
	})
	if s := a.State(); s != turn.StateClosed {
		t.Errorf("State() = %v, want %v", s, turn.StateClosed)
	}
}

// TestStop_Idempotent verifies that a second Stop is a no-op: same final
// state, no duplicate flush.
func TestStop_Idempotent(t *testing.T) {
	var hookCalls int
	a := newActive(turn.WithOnTurnCommitted(func([]turn.Entry) { hookCalls++ }))

	a.PartialInput("closing words")
	a.Stop()
	a.Stop()

	assertEntries(t, a.Entries(), []turn.Entry{
		{Speaker: turn.User, Text: "closing words"},
	})
	if hookCalls != 1 {
		t.Errorf("committed hook fired %d times, want 1", hookCalls)
	}
	if s := a.State(); s != turn.StateClosed {
		t.Errorf("State() = %v, want %v", s, turn.StateClosed)
	}
}

// TestStop_FromIdle verifies that stopping a never-started assembler closes
// it with an empty transcript.
func TestStop_FromIdle(t *testing.T) {
	a := turn.New()
	a.Stop()

	if n := a.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
	if s := a.State(); s != turn.StateClosed {
		t.Errorf("State() = %v, want %v", s, turn.StateClosed)
	}

	// Closed is terminal: Start cannot revive it.
	a.Start()
	if s := a.State(); s != turn.StateClosed {
		t.Errorf("State() after Start = %v, want %v", s, turn.StateClosed)
	}
}

// TestBargeIn verifies that the barge-in hook fires on agent activity while
// active, and only then. User fragments never fire it; a committed turn is
// not forced early.
func TestBargeIn(t *testing.T) {
	var bargeIns int
	a := turn.New(turn.WithBargeIn(func() { bargeIns++ }))

	// Idle: no hook.
	a.ModelTurnActivity()
	if bargeIns != 0 {
		t.Fatalf("barge-in fired while idle")
	}

	a.Start()
	a.PartialInput("I think the answer is")
	if bargeIns != 0 {
		t.Fatalf("barge-in fired on user fragment")
	}

	a.ModelTurnActivity()
	a.PartialOutput("Let me stop you there.")
	if bargeIns != 2 {
		t.Errorf("barge-in fired %d times, want 2", bargeIns)
	}

	// Barge-in must not commit the pending user text early.
	if n := a.Len(); n != 0 {
		t.Errorf("Len() = %d after barge-in, want 0 (no early commit)", n)
	}

	a.Stop()
	a.ModelTurnActivity()
	if bargeIns != 2 {
		t.Errorf("barge-in fired after close, total %d, want 2", bargeIns)
	}
}

// TestOnTurnCommitted verifies that the committed hook receives exactly the
// entries appended by each commit, including the final flush on Stop.
func TestOnTurnCommitted(t *testing.T) {
	var commits [][]turn.Entry
	a := newActive(turn.WithOnTurnCommitted(func(entries []turn.Entry) {
		commits = append(commits, entries)
	}))

	a.PartialInput("first question answer")
	a.PartialOutput("follow-up")
	a.TurnComplete()

	a.PartialOutput("closing remarks")
	a.Stop()

	if len(commits) != 2 {
		t.Fatalf("hook fired %d times, want 2", len(commits))
	}
	assertEntries(t, commits[0], []turn.Entry{
		{Speaker: turn.User, Text: "first question answer"},
		{Speaker: turn.Agent, Text: "follow-up"},
	})
	assertEntries(t, commits[1], []turn.Entry{
		{Speaker: turn.Agent, Text: "closing remarks"},
	})
}

// TestCorrector_UserTextOnly verifies that the corrector rewrites user text
// at commit time and leaves agent text untouched.
func TestCorrector_UserTextOnly(t *testing.T) {
	correct := func(s string) string {
		return strings.ReplaceAll(s, "cash", "cache")
	}
	a := newActive(turn.WithCorrector(correct))

	a.PartialInput("I would add a cash layer")
	a.PartialOutput("A cash layer, interesting.")
	a.TurnComplete()

	assertEntries(t, a.Entries(), []turn.Entry{
		{Speaker: turn.User, Text: "I would add a cache layer"},
		{Speaker: turn.Agent, Text: "A cash layer, interesting."},
	})
}

// TestCorrector_EmptyResultSuppressesEntry verifies that a correction that
// empties the text suppresses the entry instead of committing a blank one.
func TestCorrector_EmptyResultSuppressesEntry(t *testing.T) {
	a := newActive(turn.WithCorrector(func(string) string { return "  " }))

	a.PartialInput("um")
	a.PartialOutput("Go on.")
	a.TurnComplete()

	assertEntries(t, a.Entries(), []turn.Entry{
		{Speaker: turn.Agent, Text: "Go on."},
	})
}

// TestWithTranscript verifies that seeded entries precede new commits, the
// resume-after-reconnect case.
func TestWithTranscript(t *testing.T) {
	prior := []turn.Entry{
		{Speaker: turn.Agent, Text: "Welcome back."},
		{Speaker: turn.User, Text: "Thanks."},
	}
	a := newActive(turn.WithTranscript(prior))

	a.PartialInput("As I was saying")
	a.TurnComplete()

	assertEntries(t, a.Entries(), []turn.Entry{
		{Speaker: turn.Agent, Text: "Welcome back."},
		{Speaker: turn.User, Text: "Thanks."},
		{Speaker: turn.User, Text: "As I was saying"},
	})

	// The seed slice was copied, not aliased.
	prior[0].Text = "mutated"
	if got := a.Entries()[0].Text; got != "Welcome back." {
		t.Errorf("seed aliased: entries[0].Text = %q", got)
	}
}

// TestEntries_ReturnsCopy verifies that mutating a returned snapshot does not
// affect the assembler's transcript.
func TestEntries_ReturnsCopy(t *testing.T) {
	a := newActive()
	a.PartialInput("original")
	a.TurnComplete()

	snap := a.Entries()
	snap[0].Text = "tampered"

	if got := a.Entries()[0].Text; got != "original" {
		t.Errorf("entries[0].Text = %q, want %q", got, "original")
	}
}

// TestState_String covers the state names used in logs.
func TestState_String(t *testing.T) {
	cases := []struct {
		state turn.State
		want  string
	}{
		{turn.StateIdle, "idle"},
		{turn.StateActive, "active"},
		{turn.StateDraining, "draining"},
		{turn.StateClosed, "closed"},
		{turn.State(42), "state(42)"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tc.state), got, tc.want)
		}
	}
}

// TestConcurrentFragments verifies that concurrent fragment delivery and
// snapshot reads do not race and that no fragment is lost.
func TestConcurrentFragments(t *testing.T) {
	a := newActive()

	const (
		writers      = 4
		perWriter    = 50
		wantRuneDone = writers * perWriter
	)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				a.PartialInput("x")
			}
		}()
	}
	// Concurrent readers must not disturb the buffers.
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_ = a.Entries()
				_ = a.State()
			}
		}()
	}
	wg.Wait()

	a.TurnComplete()

	entries := a.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if got := len(entries[0].Text); got != wantRuneDone {
		t.Errorf("committed text length = %d, want %d", got, wantRuneDone)
	}
}
