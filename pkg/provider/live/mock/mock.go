// Package mock provides test doubles for the live package interfaces.
//
// Use Provider to verify Connect calls and feed controlled sessions. Use
// Session to drive the event stream and inspect which methods the session
// controller invoked.
//
// Example:
//
//	sess := mock.NewSession(8)
//	sess.EmitOutputText("Tell me about yourself.")
//	sess.EmitTurnComplete()
//	p := &mock.Provider{Session: sess}
//	handle, _ := p.Connect(ctx, cfg)
package mock

import (
	"context"
	"sync"

	"github.com/prathish132002/Live-Interview-App-sub000/pkg/audio"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/live"
)

// ── Provider ───────────────────────────────────────────────────────────────────

// ConnectCall records a single invocation of Provider.Connect.
type ConnectCall struct {
	// Ctx is the context passed to Connect.
	Ctx context.Context
	// Cfg is the SessionConfig passed to Connect.
	Cfg live.SessionConfig
}

// Provider is a mock implementation of live.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is the SessionHandle returned by Connect. If nil, Connect
	// returns a new default Session with a buffered event channel.
	Session live.SessionHandle

	// ConnectErr, if non-nil, is returned as the error from Connect.
	ConnectErr error

	// ProviderCapabilities is returned by Capabilities.
	ProviderCapabilities live.Capabilities

	// ConnectCalls records every call to Connect in order.
	ConnectCalls []ConnectCall

	// CapabilitiesCallCount is the number of times Capabilities was called.
	CapabilitiesCallCount int
}

// Connect records the call and returns Session, ConnectErr.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{Ctx: ctx, Cfg: cfg})
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	if p.Session != nil {
		return p.Session, nil
	}
	return NewSession(64), nil
}

// Capabilities records the call and returns ProviderCapabilities.
func (p *Provider) Capabilities() live.Capabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CapabilitiesCallCount++
	return p.ProviderCapabilities
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = nil
	p.CapabilitiesCallCount = 0
}

// Ensure Provider implements live.Provider at compile time.
var _ live.Provider = (*Provider)(nil)

// ── Session ────────────────────────────────────────────────────────────────────

// SendCall records a single invocation of Session.Send.
type SendCall struct {
	// Frame holds the mime type and a copy of the payload passed to Send.
	Frame audio.WireFrame
}

// Session is a mock implementation of live.SessionHandle.
//
// Drive the inbound stream with the Emit helpers, then call Finish to signal
// a server-initiated end of session. Close also ends the stream, mirroring
// the real implementations.
type Session struct {
	mu sync.Mutex

	// EventsCh is the channel returned by Events.
	EventsCh chan live.Event

	// SendErr, if non-nil, is returned by every Send call.
	SendErr error

	// InterruptErr, if non-nil, is returned by every Interrupt call.
	InterruptErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// ErrResult is returned by Err. Set it before Finish to simulate a
	// session that died with a terminal error.
	ErrResult error

	// SendCalls records every call to Send in order.
	SendCalls []SendCall

	// InterruptCallCount is the number of times Interrupt was called.
	InterruptCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	finishOne sync.Once
}

// NewSession creates a Session whose event channel holds buf events.
func NewSession(buf int) *Session {
	return &Session{EventsCh: make(chan live.Event, buf)}
}

// Send records the call and returns SendErr.
func (s *Session) Send(_ context.Context, frame audio.WireFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(frame.Payload))
	copy(cp, frame.Payload)
	s.SendCalls = append(s.SendCalls, SendCall{Frame: audio.WireFrame{Payload: cp, MimeType: frame.MimeType}})
	return s.SendErr
}

// Events returns EventsCh.
func (s *Session) Events() <-chan live.Event { return s.EventsCh }

// Err returns ErrResult.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ErrResult
}

// Interrupt records the call and returns InterruptErr.
func (s *Session) Interrupt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InterruptCallCount++
	return s.InterruptErr
}

// Close records the call, ends the event stream and returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	s.CloseCallCount++
	err := s.CloseErr
	s.mu.Unlock()
	s.Finish()
	return err
}

// Finish closes the event channel, signalling end of session. Safe to call
// multiple times.
func (s *Session) Finish() {
	s.finishOne.Do(func() { close(s.EventsCh) })
}

// SentFrames returns copies of the frames recorded so far.
func (s *Session) SentFrames() []audio.WireFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audio.WireFrame, len(s.SendCalls))
	for i, c := range s.SendCalls {
		out[i] = c.Frame
	}
	return out
}

// ResetCalls clears all recorded calls. Thread-safe.
func (s *Session) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SendCalls = nil
	s.InterruptCallCount = 0
	s.CloseCallCount = 0
}

// ── Emit helpers ───────────────────────────────────────────────────────────────

// EmitAudio queues an EventAudio event carrying the given PCM payload.
func (s *Session) EmitAudio(pcm []byte, sampleRate int) {
	s.EventsCh <- live.Event{Type: live.EventAudio, Audio: pcm, SampleRate: sampleRate}
}

// EmitInputText queues an EventInputText event.
func (s *Session) EmitInputText(text string) {
	s.EventsCh <- live.Event{Type: live.EventInputText, Text: text}
}

// EmitOutputText queues an EventOutputText event.
func (s *Session) EmitOutputText(text string) {
	s.EventsCh <- live.Event{Type: live.EventOutputText, Text: text}
}

// EmitTurnComplete queues an EventTurnComplete event.
func (s *Session) EmitTurnComplete() {
	s.EventsCh <- live.Event{Type: live.EventTurnComplete}
}

// EmitInterrupted queues an EventInterrupted event.
func (s *Session) EmitInterrupted() {
	s.EventsCh <- live.Event{Type: live.EventInterrupted}
}

// Ensure Session implements live.SessionHandle at compile time.
var _ live.SessionHandle = (*Session)(nil)
