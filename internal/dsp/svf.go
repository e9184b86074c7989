package dsp

import "math"

// SVF is a trapezoidal-integration state-variable filter producing
// simultaneous lowpass/highpass/bandpass/notch taps from one set of
// coefficients, used by the post-chain's resonant filter stage and by
// engines that implement their own native filter.
type SVF struct {
	sampleRate float64
	g, k, a1, a2, a3 float64
	ic1eq, ic2eq     float64
}

// NewSVF creates a state-variable filter.
func NewSVF(sampleRate float64) *SVF {
	s := &SVF{sampleRate: sampleRate}
	s.SetParams(1000, 0.707)
	return s
}

// SetParams recomputes coefficients for the given cutoff (Hz) and resonance
// (Q, clamped to a stable minimum).
func (s *SVF) SetParams(cutoffHz, q float64) {
	if s.sampleRate <= 0 {
		return
	}
	nyquist := s.sampleRate * 0.5
	cutoffHz = clamp(cutoffHz, 20, nyquist*0.49)
	q = clamp(q, 0.5, 20)

	s.g = math.Tan(math.Pi * cutoffHz / s.sampleRate)
	s.k = 1 / q
	s.a1 = 1 / (1 + s.g*(s.g+s.k))
	s.a2 = s.g * s.a1
	s.a3 = s.g * s.a2
}

// Process runs one sample and returns (lowpass, highpass, bandpass, notch).
func (s *SVF) Process(in float64) (lp, hp, bp, notch float64) {
	in = Sanitize(in)
	v3 := in - s.ic2eq
	v1 := s.a1*s.ic1eq + s.a2*v3
	v2 := s.ic2eq + s.a2*s.ic1eq + s.a3*v3
	s.ic1eq = 2*v1 - s.ic1eq
	s.ic2eq = 2*v2 - s.ic2eq

	lp = v2
	bp = v1
	hp = in - s.k*v1 - v2
	notch = in - s.k*v1
	return
}

// Reset zeros internal state.
func (s *SVF) Reset() {
	s.ic1eq, s.ic2eq = 0, 0
}
