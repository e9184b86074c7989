// Package param implements click-free parameter smoothing and the
// perceptual mapping curves used to translate normalized [0,1] parameter
// values into engine-native units (Hz, seconds, dB, Q).
package param

import "math"

// SmoothType selects the overall ramp-time policy for a Smoother.
type SmoothType int

const (
	SmoothFast SmoothType = iota
	SmoothAudible
	SmoothAdaptive
	SmoothInstant
)

// CurveType selects the shape applied to linear ramp progress.
type CurveType int

const (
	CurveLinear CurveType = iota
	CurveExponential
	CurveSCurve
	CurveLogarithmic
)

const (
	minFastTimeMs    = 0.1
	maxFastTimeMs    = 10.0
	minAudibleTimeMs = 0.1
	maxAudibleTimeMs = 1000.0
	velocitySmooth   = 0.95
	sCurveSharpness  = 2.0
)

// Config mirrors the teacher's AdvancedParameterSmoother configuration.
type Config struct {
	SmoothType           SmoothType
	CurveType            CurveType
	FastTimeMs           float64
	AudibleTimeMs        float64
	AdaptiveThreshold    float64
	JumpThreshold        float64
	EnableJumpPrevention bool
	MaxChangePerSample   float64
}

// DefaultConfig returns the teacher's default: audible, exponential, 20ms,
// jump prevention enabled.
func DefaultConfig() Config {
	return Config{
		SmoothType:           SmoothAudible,
		CurveType:            CurveExponential,
		FastTimeMs:           2.0,
		AudibleTimeMs:        20.0,
		AdaptiveThreshold:    0.1,
		JumpThreshold:        0.3,
		EnableJumpPrevention: true,
		MaxChangePerSample:   0.01,
	}
}

// Smoother converts setTarget(value) into a per-sample ramp. A Smoother with
// an invalid (non-positive) sample rate is a pass-through: process() returns
// the target directly, per the boundary behavior in the spec.
type Smoother struct {
	cfg        Config
	sampleRate float64
	passthru   bool

	current float64
	target  float64

	totalSamples int
	sampleIndex  int
	rampFrom     float64
	rampTo       float64

	changeVelocity float64
	lastTargetSet  float64
}

// New creates an initialized Smoother. Fast/audible times are clamped to
// their documented ranges.
func New(sampleRate float64, cfg Config) *Smoother {
	s := &Smoother{}
	s.Initialize(sampleRate, cfg)
	return s
}

// Initialize (re)configures the smoother, clamping fast/audible times.
func (s *Smoother) Initialize(sampleRate float64, cfg Config) {
	cfg.FastTimeMs = clamp(cfg.FastTimeMs, minFastTimeMs, maxFastTimeMs)
	cfg.AudibleTimeMs = clamp(cfg.AudibleTimeMs, minAudibleTimeMs, maxAudibleTimeMs)
	s.cfg = cfg
	s.sampleRate = sampleRate
	s.passthru = sampleRate <= 0
}

// SetValue snaps internal state to v with no smoothing.
func (s *Smoother) SetValue(v float64) {
	s.current = v
	s.target = v
	s.rampFrom = v
	s.rampTo = v
	s.totalSamples = 0
	s.sampleIndex = 0
}

// SetTarget updates the smoothing target, possibly entering a longer
// jump-prevention ramp if the change is large and enabled.
func (s *Smoother) SetTarget(v float64) {
	if s.passthru || s.cfg.SmoothType == SmoothInstant {
		s.target = v
		s.current = v
		return
	}

	change := math.Abs(v - s.current)
	s.changeVelocity = velocitySmooth*s.changeVelocity + (1-velocitySmooth)*change
	s.lastTargetSet = v

	timeMs := s.resolveTimeMs(change)
	if s.cfg.EnableJumpPrevention && change > s.cfg.JumpThreshold {
		timeMs = s.cfg.AudibleTimeMs * 2
	}

	s.target = v
	s.rampFrom = s.current
	s.rampTo = v
	s.totalSamples = s.samplesForTime(timeMs, change)
	s.sampleIndex = 0
}

func (s *Smoother) resolveTimeMs(change float64) float64 {
	switch s.cfg.SmoothType {
	case SmoothFast:
		return s.cfg.FastTimeMs
	case SmoothAudible:
		return s.cfg.AudibleTimeMs
	case SmoothAdaptive:
		return s.calculateAdaptiveTime(change, s.changeVelocity)
	default:
		return s.cfg.FastTimeMs
	}
}

func (s *Smoother) calculateAdaptiveTime(change, velocity float64) float64 {
	bias := clamp((change+velocity)/math.Max(s.cfg.AdaptiveThreshold, 1e-9), 0, 1)
	return s.cfg.FastTimeMs + bias*(s.cfg.AudibleTimeMs-s.cfg.FastTimeMs)
}

func (s *Smoother) samplesForTime(timeMs, change float64) int {
	n := int(timeMs * 0.001 * s.sampleRate)
	if s.cfg.MaxChangePerSample > 0 {
		minN := int(math.Ceil(change / s.cfg.MaxChangePerSample))
		if minN > n {
			n = minN
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Process advances one sample and returns the current smoothed value.
func (s *Smoother) Process() float64 {
	if s.passthru || s.cfg.SmoothType == SmoothInstant {
		s.current = s.target
		return s.current
	}
	if s.sampleIndex >= s.totalSamples {
		s.current = s.rampTo
		return s.current
	}
	progress := float64(s.sampleIndex) / float64(s.totalSamples)
	s.current = lerp(s.rampFrom, s.rampTo, s.applyCurve(progress))
	s.sampleIndex++
	return s.current
}

// ProcessBlock fills outputs with n samples ramping toward a single target.
func (s *Smoother) ProcessBlock(outputs []float64, target float64) {
	s.SetTarget(target)
	for i := range outputs {
		outputs[i] = s.Process()
	}
}

// ProcessBlockTargets fills outputs with n samples, re-targeting every sample.
func (s *Smoother) ProcessBlockTargets(outputs []float64, targets []float64) {
	for i, t := range targets {
		s.SetTarget(t)
		outputs[i] = s.Process()
	}
}

func (s *Smoother) applyCurve(t float64) float64 {
	switch s.cfg.CurveType {
	case CurveLinear:
		return t
	case CurveSCurve:
		return sCurve(t)
	case CurveLogarithmic:
		return logCurve(t)
	default:
		return expCurve(t)
	}
}

// GetSmoothingProgress returns progress in [0,1], 1 if not smoothing.
func (s *Smoother) GetSmoothingProgress() float64 {
	if s.totalSamples <= 0 {
		return 1
	}
	return clamp(float64(s.sampleIndex)/float64(s.totalSamples), 0, 1)
}

// GetRemainingTime returns milliseconds until target is reached.
func (s *Smoother) GetRemainingTime() float64 {
	if s.passthru || s.sampleRate <= 0 {
		return 0
	}
	remaining := s.totalSamples - s.sampleIndex
	if remaining < 0 {
		remaining = 0
	}
	return float64(remaining) / s.sampleRate * 1000
}

// Reset zeros the smoother, optionally to a provided value.
func (s *Smoother) Reset(value ...float64) {
	v := 0.0
	if len(value) > 0 {
		v = value[0]
	}
	s.SetValue(v)
}

// FreezeAtCurrent stops smoothing at the current value.
func (s *Smoother) FreezeAtCurrent() {
	s.target = s.current
	s.rampTo = s.current
	s.totalSamples = s.sampleIndex
}

// SnapToTarget immediately jumps to the target.
func (s *Smoother) SnapToTarget() {
	s.current = s.target
	s.sampleIndex = s.totalSamples
}

// Current returns the last processed value without advancing.
func (s *Smoother) Current() float64 { return s.current }

// Target returns the pending target value.
func (s *Smoother) Target() float64 { return s.target }

func expCurve(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	const k = 5.0
	return (1 - math.Exp(-k*t)) / (1 - math.Exp(-k))
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func sCurve(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	p := math.Pow(t, sCurveSharpness)
	q := math.Pow(1-t, sCurveSharpness)
	return p / (p + q)
}

func logCurve(t float64) float64 {
	if t <= 0 {
		return 0
	}
	const k = 9.0
	return math.Log1p(k*t) / math.Log1p(k)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
