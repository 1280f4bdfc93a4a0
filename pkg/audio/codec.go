package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedFrame is returned by [Decode] when the payload length is not a
// whole number of interleaved int16 samples. The error is fatal for that
// frame only — callers drop the frame and continue the session.
var ErrMalformedFrame = errors.New("audio: malformed frame payload")

// PCMMime returns the wire MIME tag for raw little-endian 16-bit PCM at the
// given sample rate, e.g. "audio/pcm;rate=16000".
func PCMMime(rate int) string {
	return fmt.Sprintf("audio/pcm;rate=%d", rate)
}

// ParsePCMRate extracts the sample rate from a PCM MIME tag produced by
// [PCMMime] or a compatible service. Returns fallback when the tag carries
// no parseable rate parameter.
func ParsePCMRate(mime string, fallback int) int {
	for _, part := range strings.Split(mime, ";") {
		part = strings.TrimSpace(part)
		if rest, ok := strings.CutPrefix(part, "rate="); ok {
			if rate, err := strconv.Atoi(rest); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return fallback
}

// Encode converts a block of normalized samples into a little-endian 16-bit
// PCM wire frame. Negative samples scale by 32768 and non-negative by 32767
// so that the full int16 range is used without overflow at either rail.
// Scaled values round to the nearest integer, which keeps the decode error
// within one quantization step for every representable sample. Samples
// outside [-1, 1] are clamped before conversion.
func Encode(b Block) WireFrame {
	payload := make([]byte, len(b.Samples)*2)
	for i, v := range b.Samples {
		if v < -1 {
			v = -1
		} else if v > 1 {
			v = 1
		}
		var s int16
		if v < 0 {
			s = int16(math.Round(float64(v) * 32768))
		} else {
			s = int16(math.Round(float64(v) * 32767))
		}
		binary.LittleEndian.PutUint16(payload[i*2:], uint16(s))
	}
	return WireFrame{
		Payload:  payload,
		MimeType: PCMMime(b.SampleRate),
	}
}

// Decode converts a little-endian 16-bit PCM payload back into a block of
// normalized mono samples. Each int16 divides by 32768. Multi-channel
// payloads are de-interleaved and downmixed by averaging the channels.
//
// Returns [ErrMalformedFrame] when the payload length is not a multiple of
// 2×channels; the partial frame is not decoded.
func Decode(payload []byte, sampleRate, channels int) (Block, error) {
	if channels <= 0 {
		return Block{}, fmt.Errorf("%w: %d channels", ErrMalformedFrame, channels)
	}
	stride := 2 * channels
	if len(payload)%stride != 0 {
		return Block{}, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformedFrame, len(payload), stride)
	}

	frames := len(payload) / stride
	samples := make([]float32, frames)
	for i := range frames {
		var sum float64
		for ch := range channels {
			s := int16(binary.LittleEndian.Uint16(payload[i*stride+ch*2:]))
			sum += float64(s) / 32768.0
		}
		samples[i] = float32(sum / float64(channels))
	}
	return Block{
		Samples:    samples,
		SampleRate: sampleRate,
	}, nil
}
