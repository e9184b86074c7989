package osc

import "math"

// Operator is a single FM operator: a phase-modulatable sine generator with
// its own ADSR-style envelope and output level, combined per Algorithm into
// a 2-op or 4-op voice. Grounded on the operator/advanceOpEnv state machine
// used by classic and 4-op FM engines.
type Operator struct {
	sampleRate float64
	phase      float64
	ratio      float64
	detuneHz   float64
	level      float64 // total output level, 0-1
	feedback   float64 // self-feedback amount for algorithm-designated ops
	prevOut    float64

	env      float64
	envState envStage
	attack   float64
	decay    float64
	sustain  float64
	release  float64
}

type envStage int

const (
	opAttack envStage = iota
	opDecay
	opSustain
	opRelease
	opOff
)

// NewOperator creates an FM operator at unity ratio and full level.
func NewOperator(sampleRate float64) *Operator {
	return &Operator{
		sampleRate: sampleRate,
		ratio:      1,
		level:      1,
		envState:   opOff,
		attack:     0.005,
		decay:      0.1,
		sustain:    0.8,
		release:    0.2,
	}
}

// SetRatio sets the operator's frequency ratio relative to the voice's base
// frequency (typically a small integer or simple fraction for harmonic
// FM tones).
func (o *Operator) SetRatio(ratio float64) { o.ratio = ratio }

// SetDetune adds a fixed Hz offset on top of the ratio-scaled frequency.
func (o *Operator) SetDetune(hz float64) { o.detuneHz = hz }

// SetLevel sets the operator's output level (0-1).
func (o *Operator) SetLevel(level float64) { o.level = clamp01(level) }

// SetFeedback sets this operator's self-feedback amount (0-1), used only
// when the algorithm routes the operator's own previous output into its
// phase.
func (o *Operator) SetFeedback(fb float64) { o.feedback = clamp01(fb) }

// SetEnvelope sets the operator's own ADSR times (seconds) and sustain
// level, independent of the voice's amplitude envelope.
func (o *Operator) SetEnvelope(attack, decay, sustain, release float64) {
	o.attack = math.Max(attack, 0.0001)
	o.decay = math.Max(decay, 0.0001)
	o.sustain = clamp01(sustain)
	o.release = math.Max(release, 0.0001)
}

// NoteOn starts the operator's envelope and, if resetPhase is true (a
// click-free trigger request), zeroes the phase accumulator.
func (o *Operator) NoteOn(resetPhase bool) {
	if resetPhase {
		o.phase = 0
	}
	o.envState = opAttack
}

// NoteOff releases the operator's envelope.
func (o *Operator) NoteOff() {
	if o.envState != opOff {
		o.envState = opRelease
	}
}

// Active reports whether the operator's envelope still has output.
func (o *Operator) Active() bool { return o.envState != opOff }

// Process advances the operator by one sample given the voice's base
// frequency and an incoming phase-modulation amount (in cycles, typically
// another operator's scaled output). It returns the operator's raw output
// in [-1,1] (unscaled by level/envelope) and the level*envelope-scaled
// output used to feed downstream operators or the voice mix.
func (o *Operator) Process(baseFreq, modCycles float64) (raw, scaled float64) {
	if o.sampleRate <= 0 {
		return 0, 0
	}
	o.advanceEnv()

	freq := baseFreq*o.ratio + o.detuneHz
	fb := o.feedback * o.prevOut
	p := o.phase + modCycles + fb
	p -= math.Floor(p)
	raw = math.Sin(2 * math.Pi * p)

	o.phase += freq / o.sampleRate
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}
	o.prevOut = raw
	scaled = raw * o.level * o.env
	return raw, scaled
}

func (o *Operator) advanceEnv() {
	switch o.envState {
	case opAttack:
		step := 1.0 / (o.attack * o.sampleRate)
		o.env += step
		if o.env >= 1 {
			o.env = 1
			o.envState = opDecay
		}
	case opDecay:
		step := (1 - o.sustain) / (o.decay * o.sampleRate)
		o.env -= step
		if o.env <= o.sustain {
			o.env = o.sustain
			o.envState = opSustain
		}
	case opSustain:
		o.env = o.sustain
	case opRelease:
		step := o.sustain / (o.release * o.sampleRate)
		o.env -= step
		if o.env <= 0.0001 {
			o.env = 0
			o.envState = opOff
		}
	case opOff:
		o.env = 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
