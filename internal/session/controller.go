// Package session owns the live interview session lifecycle. A Controller
// connects one candidate to one live speech provider: it acquires the audio
// devices, opens the provider session, and runs the streaming loops that move
// microphone blocks out and agent audio and transcript events back in. The
// package also provides the rejoin policy that restarts interrupted sessions
// with the transcript carried forward.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prathish132002/Live-Interview-App-sub000/internal/observe"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/recorder"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/report"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/transcript"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/turn"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/audio"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/live"
)

var (
	// ErrAlreadyStarted is returned by Start when the controller has
	// already run. A Controller hosts at most one session, successful or
	// not; rejoining after an interruption uses a fresh Controller.
	ErrAlreadyStarted = errors.New("session: already started")

	// ErrInterrupted is reported through Err when the transport fails
	// while the session is open. It marks the session as rejoinable:
	// callers may start a new controller seeded with the transcript so
	// far.
	ErrInterrupted = errors.New("session: connection interrupted")

	// ErrNotActive is returned by operations that require a streaming
	// session, such as SetMuted or CancelResponse, when none is running.
	ErrNotActive = errors.New("session: not active")
)

// errStopped is returned by Start when Stop wins the race against a
// connect still in flight.
var errStopped = errors.New("session: stopped during connect")

// State identifies where a controller is in its lifecycle.
type State int

const (
	// StateDisconnected is the initial and final state.
	StateDisconnected State = iota
	// StateConnecting covers device acquisition and the provider dial.
	StateConnecting
	// StateOpen means the provider session is established but streaming
	// has not begun.
	StateOpen
	// StateActive means audio and events are flowing.
	StateActive
	// StateClosing means teardown is in progress.
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// sendQueueSize bounds the outbound frame queue between the capture loop and
// the send loop. 32 blocks is about a quarter second of audio at the default
// block size; when the network cannot keep up the oldest frame is dropped and
// counted rather than stalling capture.
const sendQueueSize = 32

// Config carries the collaborators and tuning for one session.
type Config struct {
	// Provider opens the live speech session. Required.
	Provider live.Provider

	// Platform supplies the capture and playback devices. Required.
	Platform audio.Platform

	// Session is passed to the provider on connect. InputSampleRate is
	// overwritten with the capture rate.
	Session live.SessionConfig

	// Generator produces the final report. When nil, FinalReport returns
	// the placeholder report without any model call.
	Generator report.Generator

	// Corrector rewrites user transcript text at turn commit. Optional.
	Corrector *transcript.Corrector

	// Recorder receives both audio directions for archival. Optional; the
	// caller retains ownership and closes it after the session ends.
	Recorder *recorder.Recorder

	// Metrics receives pipeline instrumentation. Nil means the default
	// (no-op unless a meter provider is installed).
	Metrics *observe.Metrics

	// Transcript seeds the turn log, used when rejoining after an
	// interruption so the final report covers the whole interview.
	Transcript []turn.Entry

	// OnTurnCommitted is invoked with each batch of committed turns. The
	// hook runs on the session's event goroutine and must not call Stop.
	OnTurnCommitted func(entries []turn.Entry)

	// CaptureRate is the microphone sample rate in Hz. Zero means
	// audio.DefaultCaptureRate.
	CaptureRate int

	// BlockSize is the per-block sample count requested from the capture
	// device. Zero means audio.DefaultBlockSize.
	BlockSize int
}

// Controller drives one live interview session through its lifecycle:
//
//	Disconnected → Connecting → Open → Active → Closing → Disconnected
//
// Start launches three goroutines: the capture loop (device blocks through
// the conditioner into the send queue), the send loop (frames to the
// provider), and the event loop (provider events into playback scheduling and
// the turn assembler). Stop, or a transport failure, tears all of them down;
// Done is closed once everything has drained.
//
// Locking: mu guards state and the device/session handles. Blocking I/O is
// never performed under mu; teardown snapshots the handles and closes them
// after unlocking.
type Controller struct {
	provider   live.Provider
	platform   audio.Platform
	sessionCfg live.SessionConfig
	generator  report.Generator
	rec        *recorder.Recorder
	metrics    *observe.Metrics
	onTurns    func(entries []turn.Entry)
	log        *slog.Logger

	captureRate int
	blockSize   int

	conditioner *audio.Conditioner
	assembler   *turn.Assembler
	scheduler   *audio.Scheduler

	// rateAdapter converts decoded agent audio to the playback device rate.
	// Set in Start once the device rate is known; read only by the event loop.
	rateAdapter *audio.RateAdapter

	// ctx is session-scoped; cancel unblocks in-flight sends and stops
	// the loops at teardown.
	ctx    context.Context
	cancel context.CancelFunc

	// sendCh carries encoded frames from the capture loop to the send
	// loop. Closed by the capture loop on exit.
	sendCh chan audio.WireFrame

	// finished is closed once the session has fully wound down and the
	// controller is back in StateDisconnected.
	finished   chan struct{}
	finishOnce sync.Once

	// wg tracks the capture, send, and event loops.
	wg sync.WaitGroup

	// inFlight counts scheduled playback buffers not yet finished. It is
	// confined to the event loop until the loops are joined.
	inFlight int

	mu           sync.Mutex
	state        State
	started      bool
	muted        bool
	err          error
	playbackRate int
	capture      audio.CaptureSession
	playback     audio.PlaybackSession
	handle       live.SessionHandle

	reportOnce sync.Once
	reportVal  *report.Report
	reportErr  error
}

// New builds a Controller from cfg. The session does not start until Start
// is called.
func New(cfg Config) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		provider:    cfg.Provider,
		platform:    cfg.Platform,
		sessionCfg:  cfg.Session,
		generator:   cfg.Generator,
		rec:         cfg.Recorder,
		metrics:     cfg.Metrics,
		onTurns:     cfg.OnTurnCommitted,
		log:         slog.With("component", "session"),
		captureRate: cfg.CaptureRate,
		blockSize:   cfg.BlockSize,
		conditioner: audio.NewConditioner(),
		scheduler:   audio.NewScheduler(),
		ctx:         ctx,
		cancel:      cancel,
		sendCh:      make(chan audio.WireFrame, sendQueueSize),
		finished:    make(chan struct{}),
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	if c.captureRate <= 0 {
		c.captureRate = audio.DefaultCaptureRate
	}
	if c.blockSize <= 0 {
		c.blockSize = audio.DefaultBlockSize
	}

	opts := []turn.Option{
		turn.WithBargeIn(c.conditioner.EndSpeech),
		turn.WithOnTurnCommitted(c.committed),
	}
	if cfg.Corrector != nil {
		opts = append(opts, turn.WithCorrector(cfg.Corrector.Correct))
	}
	if len(cfg.Transcript) > 0 {
		opts = append(opts, turn.WithTranscript(cfg.Transcript))
	}
	c.assembler = turn.New(opts...)
	return c
}

// committed fans a batch of committed turns out to metrics and the caller's
// hook.
func (c *Controller) committed(entries []turn.Entry) {
	for _, e := range entries {
		c.metrics.RecordTurnCommitted(context.Background(), string(e.Speaker))
	}
	if c.onTurns != nil {
		c.onTurns(entries)
	}
}

// Start acquires the devices, connects the provider session, and begins
// streaming. It returns ErrAlreadyStarted unless the controller is fresh.
// On any failure every handle acquired so far is released before the error
// is returned.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected || c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.state = StateConnecting
	c.mu.Unlock()

	c.conditioner.Reset()

	capture, err := c.platform.Capture(ctx, audio.CaptureConfig{
		SampleRate: c.captureRate,
		BlockSize:  c.blockSize,
	})
	if err != nil {
		c.abortStart()
		return fmt.Errorf("session: acquire capture: %w", err)
	}

	playbackRate := c.provider.Capabilities().OutputSampleRate
	if playbackRate <= 0 {
		playbackRate = audio.DefaultPlaybackRate
	}
	playback, err := c.platform.Playback(ctx, audio.PlaybackConfig{SampleRate: playbackRate})
	if err != nil {
		_ = capture.Close()
		c.abortStart()
		return fmt.Errorf("session: acquire playback: %w", err)
	}

	sessionCfg := c.sessionCfg
	sessionCfg.InputSampleRate = c.captureRate
	handle, err := c.provider.Connect(ctx, sessionCfg)
	if err != nil {
		_ = capture.Close()
		_ = playback.Close()
		c.abortStart()
		return fmt.Errorf("session: connect: %w", err)
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		// Stop arrived while we were connecting. Nothing was published,
		// so release what we acquired and finish.
		c.mu.Unlock()
		_ = capture.Close()
		_ = handle.Close()
		_ = playback.Close()
		c.abortStart()
		return errStopped
	}
	c.capture = capture
	c.playback = playback
	c.handle = handle
	c.playbackRate = playbackRate
	c.rateAdapter = &audio.RateAdapter{TargetRate: playbackRate}
	c.state = StateOpen
	c.mu.Unlock()

	c.log.Info("session open",
		"voice", sessionCfg.Voice,
		"capture_rate", c.captureRate,
		"playback_rate", playbackRate,
	)

	c.assembler.Start()

	c.mu.Lock()
	if c.state != StateOpen {
		// Stop arrived between Open and Active. Teardown already closed
		// the published handles; only the bookkeeping remains.
		c.mu.Unlock()
		c.abortStart()
		return errStopped
	}
	c.state = StateActive
	c.mu.Unlock()

	c.metrics.ActiveSessions.Add(ctx, 1)

	c.wg.Add(3)
	go c.captureLoop(capture.Blocks())
	go c.sendLoop(handle)
	go c.eventLoop(handle, playback)
	go c.finalize()

	return nil
}

// abortStart rolls a failed Start back to StateDisconnected and releases any
// Stop call that is waiting for the controller to finish.
func (c *Controller) abortStart() {
	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()
	c.cancel()
	c.finishOnce.Do(func() { close(c.finished) })
}

// captureLoop conditions microphone blocks and queues them for sending. It
// owns all conditioner mutation. Exits when the capture stream or the
// session ends, closing sendCh on the way out.
func (c *Controller) captureLoop(blocks <-chan audio.Block) {
	defer c.wg.Done()
	defer close(c.sendCh)
	for {
		select {
		case <-c.ctx.Done():
			return
		case b, ok := <-blocks:
			if !ok {
				c.log.Debug("capture stream ended")
				return
			}
			c.conditioner.Process(b)
			c.rec.WriteOutgoing(b)
			c.metrics.BlocksProcessed.Add(c.ctx, 1)
			frame := audio.Encode(b)
			select {
			case c.sendCh <- frame:
			default:
				// Queue full. Drop the oldest frame so the freshest
				// audio still goes out; order is preserved either way.
				select {
				case <-c.sendCh:
					c.metrics.RecordFrameDropped(c.ctx, "backpressure")
				default:
				}
				select {
				case c.sendCh <- frame:
				case <-c.ctx.Done():
					return
				}
			}
		}
	}
}

// sendLoop is the single writer toward the provider. A failed send is
// counted and skipped; terminal transport failures surface through the event
// loop when the event stream closes.
func (c *Controller) sendLoop(handle live.SessionHandle) {
	defer c.wg.Done()
	warned := false
	for {
		select {
		case <-c.ctx.Done():
			return
		case frame, ok := <-c.sendCh:
			if !ok {
				return
			}
			if err := handle.Send(c.ctx, frame); err != nil {
				c.metrics.RecordFrameDropped(c.ctx, "send_failed")
				if !warned {
					warned = true
					c.log.Warn("send failed, transport likely closing", "error", err)
				}
				continue
			}
			c.metrics.FramesSent.Add(c.ctx, 1)
		}
	}
}

// eventLoop is the single consumer of provider events. It runs until the
// event stream closes, then decides whether the close was ours or a remote
// failure.
func (c *Controller) eventLoop(handle live.SessionHandle, playback audio.PlaybackSession) {
	defer c.wg.Done()
	for ev := range handle.Events() {
		if c.State() != StateActive {
			// Shutting down; late events no longer apply.
			continue
		}
		switch ev.Type {
		case live.EventAudio:
			c.handleAudio(ev, playback)
		case live.EventInputText:
			c.assembler.PartialInput(ev.Text)
		case live.EventOutputText:
			c.assembler.PartialOutput(ev.Text)
		case live.EventTurnComplete:
			c.assembler.TurnComplete()
		case live.EventInterrupted:
			// The service abandoned its in-flight response; queued
			// agent speech is stale.
			c.scheduler.Flush(playback.Now())
			c.reconcilePlayback(playback.Now())
			c.log.Debug("agent response interrupted, playback queue flushed")
		}
	}
	c.sessionEnded(handle)
}

// handleAudio decodes an agent audio frame, converts it to the device rate,
// schedules it after the queue tail, and hands it to the playback device.
// Malformed frames are dropped; the session keeps running.
func (c *Controller) handleAudio(ev live.Event, playback audio.PlaybackSession) {
	c.metrics.InboundAudioBytes.Add(c.ctx, int64(len(ev.Audio)))

	rate := ev.SampleRate
	if rate <= 0 {
		rate = c.playbackRate
	}
	b, err := audio.Decode(ev.Audio, rate, 1)
	if err != nil {
		c.metrics.RecordFrameDropped(c.ctx, "malformed")
		c.log.Warn("dropping malformed audio frame", "error", err, "bytes", len(ev.Audio))
		return
	}
	b = c.rateAdapter.Adapt(b)

	c.assembler.ModelTurnActivity()
	c.rec.WriteIncoming(b)

	now := playback.Now()
	c.reconcilePlayback(now)
	sc := c.scheduler.Schedule(b.Seconds(), now)
	if err := playback.Enqueue(b, sc.Start); err != nil {
		c.scheduler.Release(sc.ID)
		c.log.Warn("playback enqueue failed", "error", err)
		return
	}
	c.inFlight++
	c.metrics.RecordPlaybackScheduled(c.ctx)
}

// reconcilePlayback settles the pending gauge against the scheduler, which
// releases buffers as the device clock passes their end time.
func (c *Controller) reconcilePlayback(now float64) {
	pending := c.scheduler.Pending(now)
	for c.inFlight > pending {
		c.metrics.RecordPlaybackDone(c.ctx)
		c.inFlight--
	}
}

// sessionEnded runs after the provider event stream closes. A close while
// the session was Open or Active came from the remote side: a transport
// error becomes ErrInterrupted and teardown is forced. A close in any other
// state was initiated locally and carries no error.
func (c *Controller) sessionEnded(handle live.SessionHandle) {
	err := handle.Err()
	c.mu.Lock()
	switch c.state {
	case StateActive, StateOpen:
		if err != nil {
			c.err = fmt.Errorf("%w: %v", ErrInterrupted, err)
		}
		c.mu.Unlock()
		if err != nil {
			c.log.Warn("session interrupted", "error", err)
		} else {
			c.log.Info("session closed by remote")
		}
		c.teardown()
	default:
		c.mu.Unlock()
	}
}

// Stop ends the session and blocks until everything has drained or ctx
// expires. It is idempotent: stopping a finished or never-started controller
// is a no-op, and concurrent calls all wait for the same teardown.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateDisconnected && !c.started {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.teardown()

	select {
	case <-c.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// teardown moves the session to StateClosing exactly once and releases the
// handles. Safe to call from the event loop: it never waits for the loops.
func (c *Controller) teardown() {
	c.mu.Lock()
	if c.state == StateClosing || c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	capture, playback, handle := c.capture, c.playback, c.handle
	c.mu.Unlock()

	c.cancel()

	// Flush pending transcript text before the event stream stops.
	c.assembler.Stop()

	if capture != nil {
		_ = capture.Close()
	}
	if handle != nil {
		_ = handle.Close()
	}
	if playback != nil {
		_ = playback.Close()
	}
}

// finalize waits for the loops to exit, settles the metrics, and marks the
// controller Disconnected. Runs once per started session.
func (c *Controller) finalize() {
	c.wg.Wait()

	ctx := context.Background()
	for c.inFlight > 0 {
		c.metrics.RecordPlaybackDone(ctx)
		c.inFlight--
	}
	c.metrics.ActiveSessions.Add(ctx, -1)

	c.mu.Lock()
	c.state = StateDisconnected
	err := c.err
	c.mu.Unlock()

	c.log.Info("session finished", "turns", c.assembler.Len(), "interrupted", err != nil)
	c.finishOnce.Do(func() { close(c.finished) })
}

// SetMuted toggles the microphone track. The capture cadence continues while
// muted; the device substitutes silence, so the provider still hears a
// steady stream.
func (c *Controller) SetMuted(muted bool) error {
	c.mu.Lock()
	capture, st := c.capture, c.state
	c.mu.Unlock()
	if st != StateActive || capture == nil {
		return ErrNotActive
	}
	if err := capture.SetEnabled(audio.TrackMic, !muted); err != nil {
		return fmt.Errorf("session: set mic enabled: %w", err)
	}
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
	return nil
}

// Muted reports whether the microphone is currently muted.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// ToggleCamera flips the camera track and returns the new enabled state.
// Platforms without a camera return audio.ErrTrackUnsupported.
func (c *Controller) ToggleCamera() (bool, error) {
	c.mu.Lock()
	capture, st := c.capture, c.state
	c.mu.Unlock()
	if st != StateActive || capture == nil {
		return false, ErrNotActive
	}
	enabled := capture.Enabled(audio.TrackCamera)
	if err := capture.SetEnabled(audio.TrackCamera, !enabled); err != nil {
		return enabled, fmt.Errorf("session: set camera enabled: %w", err)
	}
	return !enabled, nil
}

// CancelResponse asks the service to abandon the in-flight agent response
// and discards the queued agent audio. The playback cursor does not rewind,
// so later speech still starts after the queue tail.
func (c *Controller) CancelResponse() error {
	c.mu.Lock()
	handle, playback, st := c.handle, c.playback, c.state
	c.mu.Unlock()
	if st != StateActive || handle == nil {
		return ErrNotActive
	}
	if err := handle.Interrupt(); err != nil {
		return fmt.Errorf("session: interrupt: %w", err)
	}
	c.scheduler.Flush(playback.Now())
	return nil
}

// FinalReport produces the interview report. The generator runs at most
// once, only after the session has fully closed; repeated calls return the
// cached result. An empty transcript, or a missing generator, yields the
// placeholder report without any model call.
func (c *Controller) FinalReport(ctx context.Context) (*report.Report, error) {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	if st != StateDisconnected {
		return nil, fmt.Errorf("session: final report requested while %s", st)
	}

	c.reportOnce.Do(func() {
		entries := c.assembler.Entries()
		if len(entries) == 0 || c.generator == nil {
			c.reportVal = report.Placeholder()
			return
		}

		ctx, span := observe.StartSpan(ctx, "report.generate")
		defer span.End()
		log := observe.Logger(ctx)

		start := time.Now()
		rep, err := c.generator.Generate(ctx, entries)
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.metrics.RecordReportDuration(ctx, time.Since(start).Seconds(), status)
		if err != nil {
			c.reportErr = fmt.Errorf("session: generate report: %w", err)
			log.Warn("report generation failed", "turns", len(entries), "error", err)
			return
		}
		c.reportVal = rep
		log.Info("report generated", "turns", len(entries), "score", rep.Score)
	})
	return c.reportVal, c.reportErr
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the terminal session error, if any. It is ErrInterrupted
// (wrapped) after a transport failure and nil after a clean close. Callers
// should read it after Done is closed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed once the session has fully wound down, whether by Stop, a
// remote close, or a transport failure.
func (c *Controller) Done() <-chan struct{} {
	return c.finished
}

// Transcript returns a copy of the committed turns so far.
func (c *Controller) Transcript() []turn.Entry {
	return c.assembler.Entries()
}

// Speaking reports whether the candidate is currently speaking, as judged by
// the conditioner's gate and hangover window.
func (c *Controller) Speaking() bool {
	return c.conditioner.Speaking()
}
