// Package audio implements the signal path of a live interview session:
// block and wire-frame types, the microphone conditioning chain (high-pass
// filter, noise gate, adaptive gain), the PCM16 wire codec, and the playback
// timeline scheduler.
//
// The two device abstractions are:
//
//   - [Platform] — acquires capture and playback sessions on the local device.
//   - [CaptureSession] / [PlaybackSession] — an open microphone stream and a
//     clocked speaker queue.
//
// Implementations are provided by device-specific adapter packages (e.g.
// audio/pcmfile for file-backed development streams). The interfaces are
// intentionally narrow to keep the session controller decoupled from device
// details.
//
// This package lives under pkg/ because external code (alternative device
// adapters) is expected to implement [Platform].
package audio

import (
	"context"
	"errors"
)

// Device acquisition failures that are fatal to session start. Callers branch
// on these to distinguish a permission prompt from a generic failure.
var (
	// ErrPermissionDenied means the user or OS refused access to the device.
	ErrPermissionDenied = errors.New("audio: device permission denied")

	// ErrDeviceBusy means the device exists but is held by another consumer.
	ErrDeviceBusy = errors.New("audio: device busy")

	// ErrTrackUnsupported means the platform has no track of the requested
	// kind (e.g. toggling a camera on an audio-only platform).
	ErrTrackUnsupported = errors.New("audio: track not supported")
)

// TrackKind identifies a device track that can be enabled or disabled without
// tearing down the session.
type TrackKind int

const (
	// TrackMic is the microphone capture track.
	TrackMic TrackKind = iota

	// TrackCamera is the optional video capture track.
	TrackCamera
)

// String returns the human-readable name of the track kind.
func (k TrackKind) String() string {
	switch k {
	case TrackMic:
		return "mic"
	case TrackCamera:
		return "camera"
	default:
		return "unknown"
	}
}

// CaptureConfig holds the parameters for acquiring a capture session.
type CaptureConfig struct {
	// SampleRate is the capture rate in Hz. Typically [DefaultCaptureRate].
	SampleRate int

	// BlockSize is the number of samples per delivered [Block].
	// Typically [DefaultBlockSize].
	BlockSize int
}

// PlaybackConfig holds the parameters for acquiring a playback session.
type PlaybackConfig struct {
	// SampleRate is the playback rate in Hz. Typically [DefaultPlaybackRate].
	SampleRate int
}

// CaptureSession is an open microphone stream delivering fixed-length blocks
// in capture order.
//
// Implementations must be safe for concurrent use.
type CaptureSession interface {
	// Blocks returns the channel of captured blocks. The channel is closed
	// when the session ends or Close is called. Blocks arrive strictly in
	// capture order; the session never reorders or duplicates them.
	Blocks() <-chan Block

	// SetEnabled toggles a device track without tearing down the session.
	// Disabling the mic keeps the block cadence but delivers silence.
	// Returns [ErrTrackUnsupported] when the platform has no such track.
	SetEnabled(kind TrackKind, enabled bool) error

	// Enabled reports whether the given track is currently enabled.
	// Unsupported tracks report false.
	Enabled(kind TrackKind) bool

	// Close releases the capture device. Safe to call more than once;
	// subsequent calls are no-ops and return nil.
	Close() error
}

// PlaybackSession is a clocked speaker queue. Buffers are enqueued at
// explicit start times on the device timeline; the [Scheduler] owns the
// decision of where on the timeline each buffer begins.
//
// Implementations must be safe for concurrent use.
type PlaybackSession interface {
	// Enqueue schedules a block to begin playing at startAt, in seconds on
	// the device clock. The device never reorders buffers enqueued at
	// increasing start times.
	Enqueue(b Block, startAt float64) error

	// Now returns the current device clock in seconds. Monotonically
	// non-decreasing for the lifetime of the session.
	Now() float64

	// Close stops playback and releases the device. Safe to call more than
	// once; subsequent calls are no-ops and return nil.
	Close() error
}

// Platform is the entry point for a local audio device provider.
// Implementations wrap device-specific APIs and expose uniform capture and
// playback sessions.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Capture acquires the microphone and begins delivering blocks. The
	// supplied ctx governs the lifetime of the acquisition attempt only.
	// Returns [ErrPermissionDenied] or [ErrDeviceBusy] when the device
	// cannot be acquired; both are fatal to session start.
	Capture(ctx context.Context, cfg CaptureConfig) (CaptureSession, error)

	// Playback acquires the speaker output.
	Playback(ctx context.Context, cfg PlaybackConfig) (PlaybackSession, error)
}
