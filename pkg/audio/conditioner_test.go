package audio

import (
	"math"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source for hangover tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.t = f.t.Add(d)
}

// toneBlock builds a block of alternating-sign samples of the given
// amplitude. An alternating tone passes the high-pass filter with roughly
// unchanged amplitude, unlike a DC run which the filter strips.
func toneBlock(amp float32, n, rate int) Block {
	samples := make([]float32, n)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = amp
		} else {
			samples[i] = -amp
		}
	}
	return Block{Samples: samples, SampleRate: rate}
}

func silenceBlock(n, rate int) Block {
	return Block{Samples: make([]float32, n), SampleRate: rate}
}

func TestConditionerZeroInput(t *testing.T) {
	c := NewConditioner()
	b := silenceBlock(256, DefaultCaptureRate)

	c.Process(b)

	for i, v := range b.Samples {
		if v != 0 {
			t.Fatalf("sample %d: got %v, want 0", i, v)
		}
	}
	if c.lastInput != 0 || c.lastOutput != 0 {
		t.Errorf("filter state: got lastInput=%v lastOutput=%v, want 0, 0", c.lastInput, c.lastOutput)
	}
	if c.smoothedVolume != 0 {
		t.Errorf("smoothedVolume: got %v, want 0", c.smoothedVolume)
	}
	if c.GateOpen() {
		t.Error("gate opened on zero input")
	}
	if c.Speaking() {
		t.Error("speaking on zero input")
	}
}

func TestConditionerGateHysteresis(t *testing.T) {
	// Alternating tone amplitudes chosen so the smoothed volume settles into
	// an oscillation between roughly 0.010 and 0.012 — inside the hysteresis
	// band (close 0.008, open 0.015). The gate must hold its starting state.

	t.Run("stays closed", func(t *testing.T) {
		c := NewConditioner(WithClock(newFakeClock().Now))
		for range 200 {
			c.Process(toneBlock(0.0095, 128, DefaultCaptureRate))
			c.Process(toneBlock(0.0114, 128, DefaultCaptureRate))
			if c.GateOpen() {
				t.Fatalf("gate opened at smoothedVolume=%v", c.smoothedVolume)
			}
		}
		if sv := c.smoothedVolume; sv < 0.009 || sv > 0.013 {
			t.Fatalf("smoothedVolume settled at %v, outside the intended band", sv)
		}
	})

	t.Run("stays open", func(t *testing.T) {
		clock := newFakeClock()
		c := NewConditioner(WithClock(clock.Now))

		// Open the gate with loud input first.
		for range 20 {
			c.Process(toneBlock(0.05, 128, DefaultCaptureRate))
			clock.Advance(8 * time.Millisecond)
		}
		if !c.GateOpen() {
			t.Fatal("gate did not open on loud input")
		}

		// Decay into the band and oscillate there; the gate must not close.
		for range 400 {
			c.Process(toneBlock(0.0095, 128, DefaultCaptureRate))
			c.Process(toneBlock(0.0114, 128, DefaultCaptureRate))
			clock.Advance(16 * time.Millisecond)
			if !c.GateOpen() {
				t.Fatalf("gate closed at smoothedVolume=%v", c.smoothedVolume)
			}
		}
		if sv := c.smoothedVolume; sv < 0.009 || sv > 0.013 {
			t.Fatalf("smoothedVolume settled at %v, outside the intended band", sv)
		}
	})
}

func TestConditionerSpeakingHangover(t *testing.T) {
	// 64-sample blocks at 16 kHz are 4 ms each. 3 s of voice at amplitude
	// 0.02, then 2.5 s of silence. The gate closes a few hundred ms into the
	// silence once the envelope decays below the close threshold; speaking
	// must survive the hangover after that and drop before the silence ends.
	const (
		blockSize = 64
		blockDur  = 4 * time.Millisecond
	)
	clock := newFakeClock()
	c := NewConditioner(WithClock(clock.Now))

	voiceBlocks := int(3 * time.Second / blockDur)
	for range voiceBlocks {
		c.Process(toneBlock(0.02, blockSize, DefaultCaptureRate))
		clock.Advance(blockDur)
	}
	if !c.Speaking() {
		t.Fatal("not speaking after 3s of voice")
	}
	if _, ok := c.SpeechStart(); !ok {
		t.Fatal("no speech start recorded while speaking")
	}

	var silence time.Duration
	var droppedAt time.Duration
	for silence < 2500*time.Millisecond {
		c.Process(silenceBlock(blockSize, DefaultCaptureRate))
		clock.Advance(blockDur)
		silence += blockDur
		if !c.Speaking() {
			droppedAt = silence
			break
		}
	}

	if droppedAt == 0 {
		t.Fatal("speaking still true after 2.5s of silence")
	}
	if droppedAt <= 2000*time.Millisecond {
		t.Errorf("speaking dropped at %v into silence, before the 2s hangover", droppedAt)
	}
	if _, ok := c.SpeechStart(); ok {
		t.Error("speech start not cleared after speaking ended")
	}
}

func TestConditionerEndSpeech(t *testing.T) {
	clock := newFakeClock()
	c := NewConditioner(WithClock(clock.Now))

	for range 30 {
		c.Process(toneBlock(0.05, 128, DefaultCaptureRate))
		clock.Advance(8 * time.Millisecond)
	}
	if !c.Speaking() {
		t.Fatal("not speaking after loud input")
	}

	c.EndSpeech()
	if c.Speaking() {
		t.Error("still speaking after EndSpeech")
	}
	if _, ok := c.SpeechStart(); ok {
		t.Error("speech start survived EndSpeech")
	}

	// Filter state is untouched: the gate is still open and continued voice
	// re-enters speaking immediately.
	if !c.GateOpen() {
		t.Error("EndSpeech closed the gate")
	}
	c.Process(toneBlock(0.05, 128, DefaultCaptureRate))
	if !c.Speaking() {
		t.Error("speaking did not resume on continued voice")
	}
}

func TestConditionerGatedOutputDecaysToSilence(t *testing.T) {
	clock := newFakeClock()
	c := NewConditioner(WithClock(clock.Now))

	// Quiet hum below the open threshold: the gate never opens, the gain
	// target stays zero, and the output stays effectively silent.
	var peak float32
	for i := range 100 {
		b := toneBlock(0.004, 128, DefaultCaptureRate)
		c.Process(b)
		clock.Advance(8 * time.Millisecond)
		if i < 3 {
			continue // initial filter transient
		}
		for _, v := range b.Samples {
			if v > peak {
				peak = v
			}
			if -v > peak {
				peak = -v
			}
		}
	}
	if c.GateOpen() {
		t.Fatal("gate opened on sub-threshold input")
	}
	if peak > 0.001 {
		t.Errorf("gated output peak %v, want near-zero", peak)
	}
}

func TestConditionerAGCBoostsQuietVoice(t *testing.T) {
	clock := newFakeClock()
	c := NewConditioner(WithClock(clock.Now))

	// Amplitude 0.02 is voice (above the open threshold) but far below the
	// 0.2 target loudness, so the AGC should settle well above unity gain.
	var lastPeak float32
	for range 300 {
		b := toneBlock(0.02, 128, DefaultCaptureRate)
		c.Process(b)
		clock.Advance(8 * time.Millisecond)
		lastPeak = 0
		for _, v := range b.Samples {
			if v > lastPeak {
				lastPeak = v
			}
		}
	}
	if !c.GateOpen() {
		t.Fatal("gate did not open")
	}
	if lastPeak < 0.05 {
		t.Errorf("boosted peak %v, want well above the 0.02 input amplitude", lastPeak)
	}
	if lastPeak > clipCeiling {
		t.Errorf("peak %v exceeds the clip ceiling", lastPeak)
	}
}

func TestConditionerClipsHotInput(t *testing.T) {
	clock := newFakeClock()
	c := NewConditioner(WithClock(clock.Now))

	for range 100 {
		b := toneBlock(0.9, 128, DefaultCaptureRate)
		c.Process(b)
		clock.Advance(8 * time.Millisecond)
		for i, v := range b.Samples {
			if v > clipCeiling || v < -clipCeiling {
				t.Fatalf("sample %d: %v outside clip range", i, v)
			}
		}
	}
}

func TestConditionerNonFiniteInput(t *testing.T) {
	c := NewConditioner()
	b := Block{
		Samples:    []float32{0.1, float32(math.NaN()), float32(math.Inf(1)), -0.1},
		SampleRate: DefaultCaptureRate,
	}

	c.Process(b)

	for i, v := range b.Samples {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("sample %d is non-finite after conditioning", i)
		}
	}
	if math.IsNaN(c.lastOutput) || math.IsInf(c.lastOutput, 0) {
		t.Error("filter state is non-finite")
	}
	if math.IsNaN(c.smoothedVolume) {
		t.Error("smoothedVolume is NaN")
	}
}

func TestConditionerReset(t *testing.T) {
	clock := newFakeClock()
	c := NewConditioner(WithClock(clock.Now))

	for range 50 {
		c.Process(toneBlock(0.05, 128, DefaultCaptureRate))
		clock.Advance(8 * time.Millisecond)
	}
	if !c.Speaking() || !c.GateOpen() {
		t.Fatal("expected speaking with an open gate before reset")
	}

	c.Reset()

	if c.Speaking() || c.GateOpen() {
		t.Error("state survived reset")
	}
	if c.lastInput != 0 || c.lastOutput != 0 || c.smoothedVolume != 0 || c.currentGain != 0 {
		t.Error("numeric state survived reset")
	}
}
