package audio

import (
	"math"
	"sync"
	"time"
)

// Conditioning chain tuning. These values were tuned empirically against real
// microphone input; keep them in sync with the capture path rather than
// re-deriving them.
const (
	// hpfAlpha is the pole of the single-pole high-pass filter that strips
	// DC offset and low-frequency rumble.
	hpfAlpha = 0.90

	// envelopeAttack and envelopeRelease are the asymmetric smoothing
	// factors of the volume follower: fast rise, slow decay.
	envelopeAttack  = 0.8
	envelopeRelease = 0.99

	// gateOpenThreshold and gateCloseThreshold bound the noise-gate
	// hysteresis band. The gap prevents chatter at the boundary.
	gateOpenThreshold  = 0.015
	gateCloseThreshold = 0.008

	// agcTargetRMS is the loudness the adaptive gain steers toward.
	agcTargetRMS = 0.2

	// agcMinGain and agcMaxGain clamp the gain target while the gate is
	// open; a closed gate targets zero gain outright.
	agcMinGain = 1.0
	agcMaxGain = 12.0

	// agcSmoothing is the per-block smoothing factor toward the gain target.
	agcSmoothing = 0.92

	// agcEpsilon guards the gain division against a near-zero envelope.
	agcEpsilon = 1e-5

	// clipCeiling is the hard limit applied after gain.
	clipCeiling = 0.99

	// speechHangover is the grace period after the last gate-open block
	// before the speaking flag drops. Brief gate closures (plosives, short
	// pauses) do not end a speech segment.
	speechHangover = 2000 * time.Millisecond
)

// ConditionerOption is a functional option for configuring a [Conditioner].
type ConditionerOption func(*Conditioner)

// WithClock replaces the conditioner's time source. Tests use this to drive
// the speech hangover deterministically.
func WithClock(now func() time.Time) ConditionerOption {
	return func(c *Conditioner) {
		c.now = now
	}
}

// Conditioner is the stateful per-sample filter chain applied to every
// outgoing microphone block: high-pass filter, RMS envelope follower, noise
// gate with hysteresis, and smoothed adaptive gain.
//
// One Conditioner belongs to exactly one session. Filter state persists
// across blocks for the session lifetime and mutation is strictly sequential:
// the internal mutex serializes Process against the speaking-state accessors,
// and blocks must be fed in capture order.
type Conditioner struct {
	mu  sync.Mutex
	now func() time.Time

	// High-pass filter state.
	lastInput  float64
	lastOutput float64

	// Envelope, gate, and gain state.
	smoothedVolume float64
	currentGain    float64
	gateOpen       bool

	// Speaking state, written only by gate transitions and [Conditioner.EndSpeech].
	speaking          bool
	speechStart       time.Time
	lastVoiceActivity time.Time
}

// NewConditioner returns a Conditioner with zeroed filter state.
func NewConditioner(opts ...ConditionerOption) *Conditioner {
	c := &Conditioner{
		now: time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Process conditions one block in place. Deterministic given the accumulated
// filter state; never produces NaN or Inf. A closed gate drives the gain
// toward zero, so gated blocks decay to effective silence rather than being
// dropped — block cadence toward the transport is preserved.
func (c *Conditioner) Process(b Block) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// High-pass filter, sample by sample, accumulating energy for the RMS.
	var energy float64
	for i, v := range b.Samples {
		x := float64(v)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			// A non-finite sample would poison the filter state for the
			// rest of the session.
			x = 0
		}
		y := x - c.lastInput + hpfAlpha*c.lastOutput
		c.lastInput = x
		c.lastOutput = y
		b.Samples[i] = float32(y)
		energy += y * y
	}

	var rms float64
	if len(b.Samples) > 0 {
		rms = math.Sqrt(energy / float64(len(b.Samples)))
	}

	// Asymmetric envelope: attack fast on rising input, release slowly.
	if rms > c.smoothedVolume {
		c.smoothedVolume = envelopeAttack*c.smoothedVolume + (1-envelopeAttack)*rms
	} else {
		c.smoothedVolume = envelopeRelease*c.smoothedVolume + (1-envelopeRelease)*rms
	}

	// Gate hysteresis: an open gate closes only below the close threshold,
	// a closed gate opens only above the open threshold.
	if c.gateOpen {
		if c.smoothedVolume < gateCloseThreshold {
			c.gateOpen = false
		}
	} else if c.smoothedVolume > gateOpenThreshold {
		c.gateOpen = true
	}

	// Speaking state with hangover.
	now := c.now()
	if c.gateOpen {
		if !c.speaking {
			c.speaking = true
			c.speechStart = now
		}
		c.lastVoiceActivity = now
	} else if c.speaking && now.Sub(c.lastVoiceActivity) > speechHangover {
		c.speaking = false
		c.speechStart = time.Time{}
	}

	// Adaptive gain toward the target loudness.
	var target float64
	if c.gateOpen {
		target = agcTargetRMS / (c.smoothedVolume + agcEpsilon)
		if target < agcMinGain {
			target = agcMinGain
		} else if target > agcMaxGain {
			target = agcMaxGain
		}
	}
	c.currentGain = agcSmoothing*c.currentGain + (1-agcSmoothing)*target

	// Apply gain and hard-clip.
	gain := float32(c.currentGain)
	for i, v := range b.Samples {
		v *= gain
		if v > clipCeiling {
			v = clipCeiling
		} else if v < -clipCeiling {
			v = -clipCeiling
		}
		b.Samples[i] = v
	}
}

// Speaking reports whether the conditioner currently considers the user to be
// speaking. The flag rises on the first gate-open block and falls once the
// gate has been closed for longer than the hangover, or on [Conditioner.EndSpeech].
func (c *Conditioner) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// SpeechStart returns the capture-clock time the current speech segment
// began. ok is false when the user is not speaking.
func (c *Conditioner) SpeechStart() (start time.Time, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speechStart, c.speaking
}

// GateOpen reports the current noise-gate state.
func (c *Conditioner) GateOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gateOpen
}

// EndSpeech force-clears the speaking flag without waiting for the hangover.
// The session controller calls this when the remote agent starts responding:
// the user's turn is over even though the gate may not have closed yet.
// Filter and gain state are untouched.
func (c *Conditioner) EndSpeech() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking = false
	c.speechStart = time.Time{}
}

// Reset zeroes all filter, gate, and speaking state. Called at session start
// so no state leaks between sessions sharing a Conditioner.
func (c *Conditioner) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastInput = 0
	c.lastOutput = 0
	c.smoothedVolume = 0
	c.currentGain = 0
	c.gateOpen = false
	c.speaking = false
	c.speechStart = time.Time{}
	c.lastVoiceActivity = time.Time{}
}
