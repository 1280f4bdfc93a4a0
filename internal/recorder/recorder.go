// Package recorder captures both directions of a live session as Opus packet
// files for later review.
//
// One file is written per direction: conditioned microphone audio (what the
// service heard) and decoded agent audio (what the user heard). Recording is
// strictly best-effort — any failure logs a warning, disables the affected
// direction, and the session continues. A nil *Recorder is a valid no-op, so
// callers thread an optional recorder without guards.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/prathish132002/Live-Interview-App-sub000/pkg/audio"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/audio/opus"
)

const (
	outgoingFile = "outgoing.opuspkt"
	incomingFile = "incoming.opuspkt"
)

// opusRates are the sample rates the codec accepts natively, ascending.
var opusRates = []int{8000, 12000, 16000, 24000, 48000}

// nativeOpusRate returns the lowest Opus-native rate that is at least rate,
// so resampling never discards bandwidth the source actually had.
func nativeOpusRate(rate int) int {
	for _, r := range opusRates {
		if rate <= r {
			return r
		}
	}
	return 48000
}

// Recorder writes one Opus packet file per session direction.
//
// Write methods are safe for concurrent use with each other; the engine loop
// feeds the outgoing stream while the event loop feeds the incoming one.
type Recorder struct {
	outgoing *stream
	incoming *stream
}

// New creates a recorder writing into dir, creating it if needed.
// captureRate is the conditioned microphone rate; playbackRate is the rate
// of decoded agent audio. Sources at a non-native rate are resampled to the
// nearest Opus rate at or above them.
func New(dir string, captureRate, playbackRate int) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: create directory %q: %w", dir, err)
	}

	out, err := newStream(filepath.Join(dir, outgoingFile), "outgoing", captureRate)
	if err != nil {
		return nil, err
	}
	in, err := newStream(filepath.Join(dir, incomingFile), "incoming", playbackRate)
	if err != nil {
		out.close()
		return nil, err
	}
	return &Recorder{outgoing: out, incoming: in}, nil
}

// WriteOutgoing appends conditioned microphone samples. Best-effort: errors
// disable the outgoing direction and are not returned.
func (r *Recorder) WriteOutgoing(b audio.Block) {
	if r == nil {
		return
	}
	r.outgoing.write(b)
}

// WriteIncoming appends decoded agent samples. Best-effort: errors disable
// the incoming direction and are not returned.
func (r *Recorder) WriteIncoming(b audio.Block) {
	if r == nil {
		return
	}
	r.incoming.write(b)
}

// Close flushes trailing partial frames in both directions and closes the
// files. Safe to call on a nil receiver and safe to call twice.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	return errors.Join(r.outgoing.close(), r.incoming.close())
}

// stream is one recorded direction.
type stream struct {
	name string
	rate int

	mu       sync.Mutex
	enc      *opus.Encoder
	pw       *PacketWriter
	disabled bool
}

func newStream(path, name string, sourceRate int) (*stream, error) {
	rate := nativeOpusRate(sourceRate)
	enc, err := opus.NewEncoder(rate)
	if err != nil {
		return nil, fmt.Errorf("recorder: %s encoder: %w", name, err)
	}
	pw, err := CreatePacketFile(path, rate)
	if err != nil {
		return nil, err
	}
	return &stream{name: name, rate: rate, enc: enc, pw: pw}, nil
}

func (s *stream) write(b audio.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return
	}

	samples := audio.Resample(b.Samples, b.SampleRate, s.rate)
	packets, encErr := s.enc.Encode(samples)
	for _, p := range packets {
		if err := s.pw.WritePacket(p); err != nil {
			s.disableLocked(err)
			return
		}
	}
	if encErr != nil {
		s.disableLocked(encErr)
	}
}

// disableLocked turns the stream off after a failure. The session keeps
// running; only this direction's recording stops.
func (s *stream) disableLocked(err error) {
	slog.Warn("recorder: direction disabled", "direction", s.name, "error", err)
	s.disabled = true
	_ = s.pw.Close()
}

func (s *stream) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return nil
	}
	s.disabled = true

	var errs []error
	if p, err := s.enc.Flush(); err != nil {
		errs = append(errs, err)
	} else if p != nil {
		if err := s.pw.WritePacket(p); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.pw.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("recorder: close %s: %w", s.name, errors.Join(errs...))
	}
	return nil
}
