// Package live defines the Provider interface for realtime voice backends.
//
// A live provider wraps a bidirectional speech-to-speech service that accepts
// raw audio input and returns synthesised audio output in a single, stateful
// session — the OpenAI Realtime API and Google's Gemini Live API are the two
// shipped implementations. Sessions are long-lived (minutes) and carry audio,
// partial transcripts, and turn-boundary signals over one multiplexed stream.
//
// The central abstraction is SessionHandle: outgoing frames go through Send,
// and everything the service emits arrives as a single ordered stream of
// typed [Event] values. One consumer loop draining Events turns the service's
// racey callback ordering into a deterministic queue.
//
// All implementations must be safe for concurrent use.
package live

import (
	"context"
	"time"

	"github.com/prathish132002/Live-Interview-App-sub000/pkg/audio"
)

// EventType classifies the events a session emits.
type EventType int

const (
	// EventAudio carries a chunk of synthesised agent speech.
	EventAudio EventType = iota

	// EventInputText carries a partial transcript of the user's speech as
	// recognised by the service.
	EventInputText

	// EventOutputText carries a partial transcript of the agent's speech.
	EventOutputText

	// EventTurnComplete marks the end of the current exchange: accumulated
	// partial transcripts can be committed as a turn.
	EventTurnComplete

	// EventInterrupted signals that the service abandoned its in-flight
	// response, typically because the user barged in. Queued agent audio
	// should not be awaited.
	EventInterrupted
)

// String returns the human-readable name of the event type.
func (e EventType) String() string {
	switch e {
	case EventAudio:
		return "AUDIO"
	case EventInputText:
		return "INPUT_TEXT"
	case EventOutputText:
		return "OUTPUT_TEXT"
	case EventTurnComplete:
		return "TURN_COMPLETE"
	case EventInterrupted:
		return "INTERRUPTED"
	default:
		return "UNKNOWN"
	}
}

// Event is one item on a session's inbound stream.
type Event struct {
	// Type discriminates which of the payload fields is meaningful.
	Type EventType

	// Audio is the raw PCM payload for [EventAudio].
	Audio []byte

	// SampleRate is the rate of Audio in Hz for [EventAudio].
	SampleRate int

	// Text is the partial transcript for [EventInputText] and
	// [EventOutputText].
	Text string
}

// SessionConfig is the initial configuration for a new live session.
type SessionConfig struct {
	// Voice selects the provider voice for synthesised speech. Empty keeps
	// the provider default.
	Voice string

	// Instructions is the system-level prompt that defines the interviewer's
	// persona and behavioural constraints.
	Instructions string

	// InputSampleRate is the rate of the PCM frames the caller will Send.
	InputSampleRate int
}

// Capabilities describes static properties of a live provider. The values
// are assumed constant for the lifetime of the Provider instance.
type Capabilities struct {
	// MaxSessionDuration is the hard upper bound on session lifetime imposed
	// by the service. Zero means no documented limit.
	MaxSessionDuration time.Duration

	// OutputSampleRate is the rate of synthesised audio in Hz.
	OutputSampleRate int

	// SupportsInterrupt indicates whether the client can cancel an in-flight
	// response via [SessionHandle.Interrupt].
	SupportsInterrupt bool

	// Voices lists the voice names available for this provider.
	Voices []string
}

// SessionHandle represents an open live session. It is an interface so that
// test code can supply mock implementations without a live connection.
//
// The session is the hot path of the audio pipeline — every method must
// return quickly. All methods must be safe for concurrent use.
//
// Callers must call Close when the session is no longer needed.
type SessionHandle interface {
	// Send delivers one encoded audio frame to the service. Frames must be
	// sent in capture order; the session never reorders them. Returns an
	// error if the session is closed or the write fails.
	Send(ctx context.Context, frame audio.WireFrame) error

	// Events returns the read-only stream of session events. The channel is
	// closed when the session ends, cleanly or not; after it closes, call
	// [SessionHandle.Err] to learn whether a terminal error occurred.
	// Consumers must drain this channel promptly to prevent backpressure
	// from stalling the session's receive loop.
	Events() <-chan Event

	// Err returns the error that ended the session, or nil after a clean
	// close. Only meaningful once the Events channel has closed.
	Err() error

	// Interrupt asks the service to stop generating the current response
	// and discard buffered audio. Providers without client-side cancel
	// return an error.
	Interrupt() error

	// Close terminates the session, releases all resources, and closes the
	// Events channel. Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any realtime voice backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Connect establishes a new live session with the given configuration.
	// The returned SessionHandle is ready to accept audio immediately.
	//
	// The supplied ctx governs the connection attempt; enforce dial
	// timeouts there. Returns an error if the session cannot be established
	// (authentication failure, invalid voice, ctx cancelled). The caller
	// owns the SessionHandle and is responsible for calling Close.
	Connect(ctx context.Context, cfg SessionConfig) (SessionHandle, error)

	// Capabilities returns static metadata about the underlying service.
	Capabilities() Capabilities
}
