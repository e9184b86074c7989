// Package antclick implements the anti-click controller that guards engine
// parameter and frequency-class changes from producing audible discontinuities,
// grounded on FMAntiClick.h's per-operator ramp/phase-correction state machine.
package antclick

import "math"

// RampType selects how a suppressed discontinuity is smoothed out.
type RampType int

const (
	RampLinear RampType = iota
	RampExponential
	RampZeroCrossing
	RampAdaptive
)

const (
	phaseJumpThreshold = 0.5 // cycles of phase discontinuity considered a jump
	minRampSamples     = 8
	maxRampSamples     = 512
	expCurveFactor     = 3.0
)

// Config mirrors FMAntiClick::GlobalConfig.
type Config struct {
	RampType          RampType
	MinRampTimeMs     float64
	MaxRampTimeMs     float64
	ClickThreshold    float64
	EnablePhaseCorrect bool
	EnableZeroCross   bool
}

// DefaultConfig matches the original's defaults.
func DefaultConfig() Config {
	return Config{
		RampType:           RampAdaptive,
		MinRampTimeMs:      0.5,
		MaxRampTimeMs:      5,
		ClickThreshold:     0.1,
		EnablePhaseCorrect: true,
		EnableZeroCross:    true,
	}
}

// voiceState is the per-voice ramp/phase-correction state, one instance per
// concurrently sounding voice rather than per fixed operator slot.
type voiceState struct {
	rampProgress   float64
	rampFromLevel  float64
	rampToLevel    float64
	rampSamples    int
	rampSampleIdx  int
	ramping        bool

	phaseCorrection float64
	correcting      bool

	lastSample     float64
	energy         float64
	variance       float64
}

// Controller applies ramp and phase-correction smoothing around abrupt
// engine parameter changes (frequency-class switches, engine swaps) for a
// pool of voices.
type Controller struct {
	sampleRate float64
	cfg        Config
	voices     []voiceState
}

// New creates a controller sized for numVoices concurrent voices.
func New(sampleRate float64, numVoices int, cfg Config) *Controller {
	return &Controller{
		sampleRate: sampleRate,
		cfg:        cfg,
		voices:     make([]voiceState, numVoices),
	}
}

// OnDiscontinuity notifies the controller that voiceIdx just underwent an
// abrupt change (engine swap, frequency-class jump) and should ramp from
// its previous output level rather than snapping.
func (c *Controller) OnDiscontinuity(voiceIdx int, fromLevel, toLevel float64) {
	if voiceIdx < 0 || voiceIdx >= len(c.voices) {
		return
	}
	v := &c.voices[voiceIdx]
	change := math.Abs(toLevel - fromLevel)
	if change < c.cfg.ClickThreshold {
		v.ramping = false
		return
	}
	rampMs := c.calculateRampTime(v, change)
	v.rampFromLevel = fromLevel
	v.rampToLevel = toLevel
	v.rampSamples = clampInt(int(rampMs*c.sampleRate/1000), minRampSamples, maxRampSamples)
	v.rampSampleIdx = 0
	v.rampProgress = 0
	v.ramping = true
}

// OnPhaseJump records a phase discontinuity (e.g. an oscillator retuned
// across a wide interval) larger than phaseJumpThreshold. ProcessSample
// decays the recorded correction to zero over the following samples but
// does not apply it to the output sample.
func (c *Controller) OnPhaseJump(voiceIdx int, phaseDeltaCycles float64) {
	if voiceIdx < 0 || voiceIdx >= len(c.voices) || !c.cfg.EnablePhaseCorrect {
		return
	}
	v := &c.voices[voiceIdx]
	if math.Abs(phaseDeltaCycles) > phaseJumpThreshold {
		v.phaseCorrection = phaseDeltaCycles
		v.correcting = true
	}
}

// ProcessSample applies any in-progress ramp gain to one output sample for
// the given voice, advances the phase-correction decay, and returns the
// resulting sample.
func (c *Controller) ProcessSample(voiceIdx int, sample float64) float64 {
	if voiceIdx < 0 || voiceIdx >= len(c.voices) {
		return sample
	}
	v := &c.voices[voiceIdx]
	c.analyze(v, sample)

	out := sample
	if v.ramping {
		gain := c.rampGain(v)
		out = sample * gain
		v.rampSampleIdx++
		v.rampProgress = float64(v.rampSampleIdx) / float64(v.rampSamples)
		if v.rampSampleIdx >= v.rampSamples {
			v.ramping = false
		}
	}
	if v.correcting {
		decay := 0.9
		v.phaseCorrection *= decay
		if math.Abs(v.phaseCorrection) < 1e-4 {
			v.correcting = false
		}
	}
	v.lastSample = out
	return out
}

// IsRamping reports whether voiceIdx is currently inside a suppression ramp.
func (c *Controller) IsRamping(voiceIdx int) bool {
	if voiceIdx < 0 || voiceIdx >= len(c.voices) {
		return false
	}
	return c.voices[voiceIdx].ramping
}

func (c *Controller) rampGain(v *voiceState) float64 {
	t := v.rampProgress
	switch c.cfg.RampType {
	case RampLinear:
		return lerp(v.rampFromLevel, v.rampToLevel, t)
	case RampExponential:
		e := (1 - math.Exp(-expCurveFactor*t)) / (1 - math.Exp(-expCurveFactor))
		return lerp(v.rampFromLevel, v.rampToLevel, e)
	case RampZeroCrossing:
		// Hold the prior level until a zero crossing, then snap.
		if sameSign(v.lastSample, v.rampToLevel) || t >= 1 {
			return v.rampToLevel
		}
		return v.rampFromLevel
	default: // RampAdaptive: exponential rate scaled by signal complexity
		complexity := clamp01(v.variance * 4)
		k := expCurveFactor * (0.5 + complexity)
		e := (1 - math.Exp(-k*t)) / (1 - math.Exp(-k))
		return lerp(v.rampFromLevel, v.rampToLevel, e)
	}
}

func (c *Controller) calculateRampTime(v *voiceState, change float64) float64 {
	base := c.cfg.MinRampTimeMs + change*(c.cfg.MaxRampTimeMs-c.cfg.MinRampTimeMs)
	if c.cfg.RampType == RampAdaptive {
		base *= 1 + v.variance
	}
	if base < c.cfg.MinRampTimeMs {
		base = c.cfg.MinRampTimeMs
	}
	if base > c.cfg.MaxRampTimeMs {
		base = c.cfg.MaxRampTimeMs
	}
	return base
}

func (c *Controller) analyze(v *voiceState, sample float64) {
	const smooth = 0.95
	v.energy = smooth*v.energy + (1-smooth)*sample*sample
	delta := sample - v.lastSample
	v.variance = smooth*v.variance + (1-smooth)*delta*delta
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func sameSign(a, b float64) bool { return (a >= 0) == (b >= 0) }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
