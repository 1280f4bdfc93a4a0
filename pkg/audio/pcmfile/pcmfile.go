// Package pcmfile implements [audio.Platform] backed by raw PCM files.
// Capture reads little-endian 16-bit mono PCM from a file as if it were a
// microphone; playback appends played samples to a file in enqueue order.
//
// The package exists for development and integration testing: a full session
// can run end to end against recorded audio without real devices.
package pcmfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/prathish132002/Live-Interview-App-sub000/pkg/audio"
)

// Platform reads capture audio from CapturePath and appends playback audio
// to PlaybackPath. Both files are raw little-endian 16-bit mono PCM at the
// configured rates (no header).
type Platform struct {
	// CapturePath is the file read as microphone input.
	CapturePath string

	// PlaybackPath is the file played audio is written to. Created or
	// truncated on acquisition.
	PlaybackPath string

	// RealTime paces capture delivery at the stream rate when true.
	// When false, blocks are delivered as fast as the consumer reads them.
	RealTime bool
}

var _ audio.Platform = (*Platform)(nil)

// Capture implements [audio.Platform]. File permission errors map to
// [audio.ErrPermissionDenied] so callers exercise the same branch a real
// device denial would take.
func (p *Platform) Capture(ctx context.Context, cfg audio.CaptureConfig) (audio.CaptureSession, error) {
	if cfg.SampleRate <= 0 || cfg.BlockSize <= 0 {
		return nil, fmt.Errorf("pcmfile: invalid capture config: rate=%d block=%d", cfg.SampleRate, cfg.BlockSize)
	}
	f, err := os.Open(p.CapturePath)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("pcmfile: open %s: %w", p.CapturePath, audio.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("pcmfile: open capture file: %w", err)
	}

	c := &captureSession{
		blocks:   make(chan audio.Block, 8),
		enabled:  map[audio.TrackKind]bool{audio.TrackMic: true},
		done:     make(chan struct{}),
		file:     f,
		cfg:      cfg,
		realTime: p.RealTime,
	}
	go c.readLoop(ctx)
	return c, nil
}

// Playback implements [audio.Platform].
func (p *Platform) Playback(_ context.Context, cfg audio.PlaybackConfig) (audio.PlaybackSession, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("pcmfile: invalid playback config: rate=%d", cfg.SampleRate)
	}
	f, err := os.Create(p.PlaybackPath)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("pcmfile: create %s: %w", p.PlaybackPath, audio.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("pcmfile: create playback file: %w", err)
	}
	return &playbackSession{
		file:    f,
		started: time.Now(),
	}, nil
}

// ─── capture ──────────────────────────────────────────────────────────────────

type captureSession struct {
	mu      sync.Mutex
	enabled map[audio.TrackKind]bool
	closed  bool

	blocks   chan audio.Block
	done     chan struct{}
	file     *os.File
	cfg      audio.CaptureConfig
	realTime bool
}

func (c *captureSession) Blocks() <-chan audio.Block {
	return c.blocks
}

func (c *captureSession) SetEnabled(kind audio.TrackKind, enabled bool) error {
	if kind != audio.TrackMic {
		return fmt.Errorf("pcmfile: %s: %w", kind, audio.ErrTrackUnsupported)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled[kind] = enabled
	return nil
}

func (c *captureSession) Enabled(kind audio.TrackKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled[kind]
}

func (c *captureSession) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return nil
}

// readLoop delivers fixed-size blocks from the file until EOF, Close, or ctx
// cancellation. A muted mic keeps the block cadence but delivers silence, the
// same as a disabled hardware track.
func (c *captureSession) readLoop(ctx context.Context) {
	defer close(c.blocks)
	defer c.file.Close()

	blockDur := time.Duration(c.cfg.BlockSize) * time.Second / time.Duration(c.cfg.SampleRate)
	var ticker *time.Ticker
	if c.realTime {
		ticker = time.NewTicker(blockDur)
		defer ticker.Stop()
	}

	buf := make([]byte, c.cfg.BlockSize*2)
	var elapsed time.Duration
	for {
		n, err := io.ReadFull(c.file, buf)
		if n == 0 {
			return
		}
		block, decErr := audio.Decode(buf[:n-n%2], c.cfg.SampleRate, 1)
		if decErr != nil {
			return
		}
		block.Timestamp = elapsed
		elapsed += blockDur

		if !c.Enabled(audio.TrackMic) {
			block.Samples = make([]float32, len(block.Samples))
		}

		select {
		case c.blocks <- block:
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}

		if err != nil {
			// EOF or short read: the stream is over.
			return
		}
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// ─── playback ─────────────────────────────────────────────────────────────────

type playbackSession struct {
	mu      sync.Mutex
	file    *os.File
	started time.Time
	closed  bool
}

// Enqueue writes the block's samples in arrival order. A flat file has no
// timeline, so startAt is recorded implicitly by position; the scheduler has
// already serialized the order.
func (p *playbackSession) Enqueue(b audio.Block, _ float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("pcmfile: playback session closed")
	}
	frame := audio.Encode(b)
	if _, err := p.file.Write(frame.Payload); err != nil {
		return fmt.Errorf("pcmfile: write playback: %w", err)
	}
	return nil
}

func (p *playbackSession) Now() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.started).Seconds()
}

func (p *playbackSession) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.file.Close()
}
