package audio_test

import (
	"math"
	"testing"

	"github.com/prathish132002/Live-Interview-App-sub000/pkg/audio"
)

func TestResampleSameRate(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := audio.Resample(in, 48000, 48000)
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(in))
	}
	// Same slice — pointer equality check.
	if &out[0] != &in[0] {
		t.Error("expected same slice (zero allocation) for matching rates")
	}
}

func TestResampleUpsample(t *testing.T) {
	// 2 samples at 16 kHz → 6 samples at 48 kHz.
	in := []float32{0.1, 0.2}
	out := audio.Resample(in, 16000, 48000)
	if len(out) != 6 {
		t.Fatalf("expected 6 samples, got %d", len(out))
	}
	if out[0] != 0.1 {
		t.Errorf("first sample: got %v, want 0.1", out[0])
	}
	last := float64(out[len(out)-1])
	if math.Abs(last-0.2) > 0.05 {
		t.Errorf("last sample: got %v, want close to 0.2", last)
	}
	// Interpolated samples stay within the input range.
	for i, v := range out {
		if v < 0.1-1e-6 || v > 0.2+1e-6 {
			t.Errorf("sample %d: %v outside input range", i, v)
		}
	}
}

func TestResampleDownsample(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	out := audio.Resample(in, 48000, 16000)
	if len(out) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(out))
	}
}

func TestResampleDegenerateRates(t *testing.T) {
	in := []float32{0.1, 0.2}
	for _, rates := range [][2]int{{0, 48000}, {48000, 0}, {-1, 48000}} {
		out := audio.Resample(in, rates[0], rates[1])
		if len(out) != len(in) {
			t.Errorf("rates %v: expected unchanged output, got len %d", rates, len(out))
		}
	}
}

func TestResampleBlock(t *testing.T) {
	b := audio.Block{
		Samples:    []float32{0.1, 0.2, 0.3, 0.4},
		SampleRate: 48000,
	}
	out := audio.ResampleBlock(b, 24000)
	if out.SampleRate != 24000 {
		t.Errorf("rate: got %d, want 24000", out.SampleRate)
	}
	if len(out.Samples) != 2 {
		t.Errorf("expected 2 samples, got %d", len(out.Samples))
	}
	// Input block untouched.
	if len(b.Samples) != 4 || b.SampleRate != 48000 {
		t.Error("input block was modified")
	}

	same := audio.ResampleBlock(b, 48000)
	if &same.Samples[0] != &b.Samples[0] {
		t.Error("expected pass-through for matching rate")
	}
}

func TestRateAdapter(t *testing.T) {
	a := &audio.RateAdapter{TargetRate: 24000}

	match := audio.Block{Samples: []float32{0.5}, SampleRate: 24000}
	if got := a.Adapt(match); &got.Samples[0] != &match.Samples[0] {
		t.Error("expected pass-through for matching rate")
	}

	mismatch := audio.Block{Samples: []float32{0.5, 0.5, 0.5, 0.5}, SampleRate: 48000}
	got := a.Adapt(mismatch)
	if got.SampleRate != 24000 {
		t.Errorf("rate: got %d, want 24000", got.SampleRate)
	}
	if len(got.Samples) != 2 {
		t.Errorf("expected 2 samples, got %d", len(got.Samples))
	}
}
