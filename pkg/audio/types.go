package audio

import "time"

// Default stream parameters for a live interview session. Capture runs at
// 16 kHz mono; synthesized interviewer speech arrives at 24 kHz. Blocks are
// kept short (8 ms) so the envelope follower and noise gate react within a
// few hundred milliseconds; large blocks would stretch the gate-close lag by
// the same factor.
const (
	DefaultCaptureRate  = 16000
	DefaultPlaybackRate = 24000
	DefaultBlockSize    = 128
)

// Block is a fixed-length run of normalized mono samples flowing through the
// pipeline. Samples are in [-1.0, 1.0]. Blocks are the atomic unit of audio
// transport — captured from the microphone, conditioned in place, encoded for
// the wire, and decoded again for playback.
type Block struct {
	// Samples holds the normalized mono PCM samples. The Conditioner mutates
	// this slice in place; a Block is never shared across pipeline stages
	// concurrently.
	Samples []float32

	// SampleRate in Hz (16000 for capture, 24000 for playback).
	SampleRate int

	// Timestamp marks when this block was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the playback duration of the block. Zero when the sample
// rate is unset.
func (b Block) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Seconds returns the block duration in seconds, the unit of the playback
// device clock.
func (b Block) Seconds() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// WireFrame is an encoded audio payload ready for transport. Immutable once
// produced: it is created by [Encode], handed to the live provider, and never
// touched again.
type WireFrame struct {
	// Payload is the encoded audio, little-endian 16-bit PCM.
	Payload []byte

	// MimeType tags the encoding and sample rate, e.g. "audio/pcm;rate=16000".
	MimeType string
}
