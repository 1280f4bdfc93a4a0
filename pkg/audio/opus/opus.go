// Package opus wraps the gopus codec for session recording. Conditioned
// microphone audio and decoded interviewer speech are framed at 20 ms and
// compressed per direction; the recorder writes the resulting packets to
// disk.
//
// Opus supports the session's native rates (16 kHz capture, 24 kHz playback)
// directly, so no resampling happens here. All streams are mono.
package opus

import (
	"fmt"

	"layeh.com/gopus"
)

const (
	channels = 1

	// frameMs is the Opus frame duration. 20 ms is the codec's sweet spot
	// for speech.
	frameMs = 20

	// maxPacketBytes bounds a single encoded packet.
	maxPacketBytes = 4000
)

// FrameSize returns the number of samples in one 20 ms mono frame at the
// given rate.
func FrameSize(sampleRate int) int {
	return sampleRate * frameMs / 1000
}

// Encoder compresses a mono float stream into Opus packets. Samples are
// buffered internally until a full 20 ms frame is available; Encode returns
// every completed packet. Not safe for concurrent use; the recorder owns one
// encoder per direction.
type Encoder struct {
	enc       *gopus.Encoder
	frameSize int
	buf       []int16
}

// NewEncoder creates a mono Opus encoder for the given sample rate. The rate
// must be one of the Opus-native rates (8, 12, 16, 24, or 48 kHz).
func NewEncoder(sampleRate int) (*Encoder, error) {
	enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("opus: create encoder: %w", err)
	}
	return &Encoder{
		enc:       enc,
		frameSize: FrameSize(sampleRate),
	}, nil
}

// Encode appends samples to the pending buffer and returns the packets for
// every completed 20 ms frame. A partial trailing frame stays buffered for
// the next call; use [Encoder.Flush] at end of stream.
func (e *Encoder) Encode(samples []float32) ([][]byte, error) {
	for _, v := range samples {
		e.buf = append(e.buf, floatToInt16(v))
	}

	var packets [][]byte
	for len(e.buf) >= e.frameSize {
		frame := e.buf[:e.frameSize]
		packet, err := e.enc.Encode(frame, e.frameSize, maxPacketBytes)
		if err != nil {
			return packets, fmt.Errorf("opus: encode frame: %w", err)
		}
		packets = append(packets, packet)
		e.buf = e.buf[e.frameSize:]
	}
	return packets, nil
}

// Flush pads any buffered partial frame with silence and returns its packet.
// Returns nil when nothing is buffered.
func (e *Encoder) Flush() ([]byte, error) {
	if len(e.buf) == 0 {
		return nil, nil
	}
	frame := make([]int16, e.frameSize)
	copy(frame, e.buf)
	e.buf = e.buf[:0]

	packet, err := e.enc.Encode(frame, e.frameSize, maxPacketBytes)
	if err != nil {
		return nil, fmt.Errorf("opus: encode final frame: %w", err)
	}
	return packet, nil
}

// Decoder decompresses Opus packets back into mono float samples. Each
// stream needs its own decoder to keep codec state consistent across
// consecutive packets. Not safe for concurrent use.
type Decoder struct {
	dec       *gopus.Decoder
	frameSize int
}

// NewDecoder creates a mono Opus decoder for the given sample rate.
func NewDecoder(sampleRate int) (*Decoder, error) {
	dec, err := gopus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("opus: create decoder: %w", err)
	}
	return &Decoder{
		dec:       dec,
		frameSize: FrameSize(sampleRate),
	}, nil
}

// Decode decompresses one packet into normalized samples.
func (d *Decoder) Decode(packet []byte) ([]float32, error) {
	pcm, err := d.dec.Decode(packet, d.frameSize, false)
	if err != nil {
		return nil, fmt.Errorf("opus: decode packet: %w", err)
	}
	out := make([]float32, len(pcm))
	for i, s := range pcm {
		out[i] = float32(s) / 32768.0
	}
	return out, nil
}

// floatToInt16 converts one normalized sample to int16, clamping to [-1, 1].
func floatToInt16(v float32) int16 {
	if v < -1 {
		v = -1
	} else if v > 1 {
		v = 1
	}
	if v < 0 {
		return int16(v * 32768)
	}
	return int16(v * 32767)
}
