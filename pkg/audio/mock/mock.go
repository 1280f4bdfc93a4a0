// Package mock provides in-memory mock implementations of the
// [audio.Platform], [audio.CaptureSession], and [audio.PlaybackSession]
// interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	capture := mock.NewCaptureSession(16)
//	playback := &mock.PlaybackSession{}
//	platform := &mock.Platform{CaptureResult: capture, PlaybackResult: playback}
//	capture.Push(audio.Block{Samples: samples, SampleRate: 16000})
package mock

import (
	"context"
	"sync"

	"github.com/prathish132002/Live-Interview-App-sub000/pkg/audio"
)

// ─── CaptureSession ───────────────────────────────────────────────────────────

// CaptureSession is a mock implementation of [audio.CaptureSession].
// Feed blocks with [CaptureSession.Push] and finish the stream with
// [CaptureSession.Finish].
type CaptureSession struct {
	mu sync.Mutex

	blocks    chan audio.Block
	disabled  map[audio.TrackKind]bool
	closed    bool
	finishOne sync.Once

	// SetEnabledError is returned by SetEnabled when non-nil.
	SetEnabledError error

	// CloseError is returned by the first Close call.
	CloseError error

	// SetEnabledCalls records all SetEnabled invocations in order.
	SetEnabledCalls []SetEnabledCall

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// SetEnabledCall records the arguments of a single SetEnabled invocation.
type SetEnabledCall struct {
	Kind    audio.TrackKind
	Enabled bool
}

// NewCaptureSession returns a mock capture session with the given channel
// buffer capacity.
func NewCaptureSession(buf int) *CaptureSession {
	return &CaptureSession{
		blocks:   make(chan audio.Block, buf),
		disabled: make(map[audio.TrackKind]bool),
	}
}

// Blocks implements [audio.CaptureSession].
func (c *CaptureSession) Blocks() <-chan audio.Block {
	return c.blocks
}

// SetEnabled implements [audio.CaptureSession]. Records the call.
func (c *CaptureSession) SetEnabled(kind audio.TrackKind, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetEnabledCalls = append(c.SetEnabledCalls, SetEnabledCall{Kind: kind, Enabled: enabled})
	if c.SetEnabledError != nil {
		return c.SetEnabledError
	}
	c.disabled[kind] = !enabled
	return nil
}

// Enabled implements [audio.CaptureSession].
func (c *CaptureSession) Enabled(kind audio.TrackKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disabled[kind]
}

// Close implements [audio.CaptureSession]. The block channel is closed on the
// first call; subsequent calls are no-ops and return nil.
func (c *CaptureSession) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountClose++
	if c.closed {
		return nil
	}
	c.closed = true
	c.finishOne.Do(func() { close(c.blocks) })
	return c.CloseError
}

// Push delivers a block to the capture channel. Blocks if the buffer is full.
func (c *CaptureSession) Push(b audio.Block) {
	c.blocks <- b
}

// Finish closes the block channel without marking the session closed, as a
// device would when the stream ends on its own.
func (c *CaptureSession) Finish() {
	c.finishOne.Do(func() { close(c.blocks) })
}

// ─── PlaybackSession ──────────────────────────────────────────────────────────

// EnqueueCall records the arguments of a single Enqueue invocation.
type EnqueueCall struct {
	Block   audio.Block
	StartAt float64
}

// PlaybackSession is a mock implementation of [audio.PlaybackSession].
// Set NowResult to control the device clock; inspect EnqueueCalls after.
type PlaybackSession struct {
	mu sync.Mutex

	// NowResult is returned by Now.
	NowResult float64

	// EnqueueError is returned by Enqueue when non-nil.
	EnqueueError error

	// CloseError is returned by the first Close call.
	CloseError error

	// EnqueueCalls records all Enqueue invocations in order.
	EnqueueCalls []EnqueueCall

	// CallCountClose records how many times Close was called.
	CallCountClose int

	closed bool
}

// Enqueue implements [audio.PlaybackSession]. Records the call.
func (p *PlaybackSession) Enqueue(b audio.Block, startAt float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EnqueueCalls = append(p.EnqueueCalls, EnqueueCall{Block: b, StartAt: startAt})
	return p.EnqueueError
}

// Now implements [audio.PlaybackSession]. Returns NowResult.
func (p *PlaybackSession) Now() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.NowResult
}

// SetNow advances the mock device clock.
func (p *PlaybackSession) SetNow(now float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NowResult = now
}

// Close implements [audio.PlaybackSession]. Subsequent calls are no-ops and
// return nil.
func (p *PlaybackSession) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountClose++
	if p.closed {
		return nil
	}
	p.closed = true
	return p.CloseError
}

// Enqueued returns a copy of all enqueued calls so far.
func (p *PlaybackSession) Enqueued() []EnqueueCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EnqueueCall, len(p.EnqueueCalls))
	copy(out, p.EnqueueCalls)
	return out
}

// ─── Platform ─────────────────────────────────────────────────────────────────

// CaptureCall records the arguments of a single Capture invocation.
type CaptureCall struct {
	Config audio.CaptureConfig
}

// PlaybackCall records the arguments of a single Playback invocation.
type PlaybackCall struct {
	Config audio.PlaybackConfig
}

// Platform is a mock implementation of [audio.Platform].
type Platform struct {
	mu sync.Mutex

	// CaptureResult is returned by Capture.
	CaptureResult audio.CaptureSession

	// CaptureError is returned by Capture.
	CaptureError error

	// PlaybackResult is returned by Playback.
	PlaybackResult audio.PlaybackSession

	// PlaybackError is returned by Playback.
	PlaybackError error

	// CaptureCalls records all Capture invocations.
	CaptureCalls []CaptureCall

	// PlaybackCalls records all Playback invocations.
	PlaybackCalls []PlaybackCall
}

// Capture implements [audio.Platform]. Records the call and returns
// CaptureResult / CaptureError.
func (p *Platform) Capture(_ context.Context, cfg audio.CaptureConfig) (audio.CaptureSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CaptureCalls = append(p.CaptureCalls, CaptureCall{Config: cfg})
	if p.CaptureError != nil {
		return nil, p.CaptureError
	}
	return p.CaptureResult, nil
}

// Playback implements [audio.Platform]. Records the call and returns
// PlaybackResult / PlaybackError.
func (p *Platform) Playback(_ context.Context, cfg audio.PlaybackConfig) (audio.PlaybackSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PlaybackCalls = append(p.PlaybackCalls, PlaybackCall{Config: cfg})
	if p.PlaybackError != nil {
		return nil, p.PlaybackError
	}
	return p.PlaybackResult, nil
}
