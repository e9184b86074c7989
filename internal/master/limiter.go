package master

import "math"

// Limiter is a soft-knee tanh limiter with a hard ceiling clamp to
// [-1,1], the final stage of the Master Chain (§4.9).
type Limiter struct {
	ceiling float64
	kneeDB  float64
}

// NewLimiter creates a limiter at unity ceiling with a modest soft knee.
func NewLimiter() *Limiter {
	return &Limiter{ceiling: 1.0, kneeDB: 3.0}
}

// SetCeiling sets the hard ceiling, normally 1.0 (full scale).
func (l *Limiter) SetCeiling(ceiling float64) {
	if ceiling > 0 {
		l.ceiling = ceiling
	}
}

// ProcessSample applies the soft-knee tanh curve scaled to the ceiling,
// then hard-clamps as a final safety net.
func (l *Limiter) ProcessSample(in float64) float64 {
	kneeLinear := math.Pow(10, -l.kneeDB/20)
	threshold := l.ceiling * kneeLinear
	ax := math.Abs(in)
	var out float64
	if ax <= threshold {
		out = in
	} else {
		sign := 1.0
		if in < 0 {
			sign = -1
		}
		over := (ax - threshold) / (l.ceiling - threshold + 1e-9)
		shaped := threshold + (l.ceiling-threshold)*math.Tanh(over)
		out = sign * shaped
	}
	if out > l.ceiling {
		out = l.ceiling
	}
	if out < -l.ceiling {
		out = -l.ceiling
	}
	return out
}
