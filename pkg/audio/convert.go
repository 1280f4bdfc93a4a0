package audio

import (
	"log/slog"
	"sync"
)

// Resample converts normalized samples from srcRate to dstRate using linear
// interpolation. If the rates match (or either is non-positive) the input is
// returned unchanged. Linear interpolation is adequate for speech at the
// rates used here; no anti-aliasing filter is applied.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 {
		return samples
	}
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]float32, dstLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstLen {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}

// ResampleBlock returns b converted to dstRate. The input block is not
// modified; when no conversion is needed it is returned as-is (zero
// allocation).
func ResampleBlock(b Block, dstRate int) Block {
	if b.SampleRate == dstRate || b.SampleRate <= 0 || dstRate <= 0 {
		return b
	}
	return Block{
		Samples:    Resample(b.Samples, b.SampleRate, dstRate),
		SampleRate: dstRate,
		Timestamp:  b.Timestamp,
	}
}

// RateAdapter converts decoded blocks to a target device rate. It logs a
// warning on the first rate mismatch so a misconfigured provider shows up in
// the logs exactly once. Create one per stream; not designed for shared use
// across goroutines.
type RateAdapter struct {
	TargetRate     int
	warnedMismatch sync.Once
}

// Adapt converts a block to the adapter's target rate. If the block already
// matches, it is returned unchanged.
func (a *RateAdapter) Adapt(b Block) Block {
	if b.SampleRate == a.TargetRate {
		return b
	}
	a.warnedMismatch.Do(func() {
		slog.Warn("audio rate mismatch: resampling",
			"from", b.SampleRate,
			"to", a.TargetRate,
		)
	})
	return ResampleBlock(b, a.TargetRate)
}
