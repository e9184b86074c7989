// Package crossfade implements the Engine Crossfader (§4.8): an atomic,
// click-free swap of a slot's engine between an old (A) and new (B)
// instance, using an equal-power law selected from several variants.
// Grounded on the original_source EngineCrossfader.h's curve set and state
// machine.
package crossfade

import "math"

// CurveType selects the gain law applied across the crossfade.
type CurveType int

const (
	EqualPowerSine CurveType = iota
	EqualPowerSqrt
	SCurve
	Linear
	ConstantPower
)

// State names which side(s) of the crossfade are currently live.
type State int

const (
	AOnly State = iota
	BOnly
	AToB
	BToA
)

const (
	minCrossfadeMs = 5
	maxCrossfadeMs = 500
)

// Crossfader owns the A/B gain law for one slot's engine swap.
type Crossfader struct {
	sampleRate float64
	curve      CurveType
	state      State

	totalSamples int
	sampleIndex  int
	position     float64 // 0=AOnly .. 1=BOnly, manual-parkable
	manualParked bool
}

// New creates a Crossfader for sampleRate, defaulting to AOnly/EqualPowerSine.
func New(sampleRate float64) *Crossfader {
	return &Crossfader{sampleRate: sampleRate, curve: EqualPowerSine, state: AOnly}
}

// SetCurve selects the gain law used by subsequent crossfades.
func (c *Crossfader) SetCurve(curve CurveType) { c.curve = curve }

// State returns the current crossfade state.
func (c *Crossfader) State() State { return c.state }

// Position returns progress in [0,1] through the active crossfade (0 at
// start, 1 at completion); meaningless when State is AOnly or BOnly.
func (c *Crossfader) Position() float64 { return c.position }

// StartAToB begins a crossfade from the currently live A engine to a newly
// prepared B engine over crossfadeMs (clamped to [5,500]ms).
func (c *Crossfader) StartAToB(crossfadeMs float64) {
	c.start(AToB, crossfadeMs)
}

// StartBToA begins the reverse crossfade (B, the currently live engine,
// back toward A), used when a swap is requested again before the previous
// one settles.
func (c *Crossfader) StartBToA(crossfadeMs float64) {
	c.start(BToA, crossfadeMs)
}

func (c *Crossfader) start(state State, crossfadeMs float64) {
	crossfadeMs = clamp(crossfadeMs, minCrossfadeMs, maxCrossfadeMs)
	c.state = state
	c.totalSamples = int(crossfadeMs * 0.001 * c.sampleRate)
	if c.totalSamples < 1 {
		c.totalSamples = 1
	}
	if c.manualParked {
		// resume from the parked position instead of restarting at the edge
		if state == AToB {
			c.sampleIndex = int(c.position * float64(c.totalSamples))
		} else {
			c.sampleIndex = int((1 - c.position) * float64(c.totalSamples))
		}
		c.manualParked = false
	} else {
		c.sampleIndex = 0
	}
}

// ParkAt manually positions the crossfade mid-way for morphing and freezes
// automatic advancement until Start{AToB,BToA} is called again.
func (c *Crossfader) ParkAt(position float64) {
	c.position = clamp(position, 0, 1)
	c.manualParked = true
}

// Gains advances the crossfade by one sample (unless manually parked) and
// returns (gainA, gainB) under the selected curve. At completion, state
// settles to AOnly or BOnly and the caller should retire the silenced side
// back to the cold pool.
func (c *Crossfader) Gains() (gainA, gainB float64) {
	switch c.state {
	case AOnly:
		return 1, 0
	case BOnly:
		return 0, 1
	}

	if !c.manualParked {
		if c.sampleIndex >= c.totalSamples {
			c.position = 1
		} else {
			c.position = float64(c.sampleIndex) / float64(c.totalSamples)
			c.sampleIndex++
		}
	}

	progress := c.position
	if c.state == BToA {
		progress = 1 - progress
	}

	gA, gB := c.curveGains(progress)

	if !c.manualParked && c.sampleIndex >= c.totalSamples {
		if c.state == AToB {
			c.state = BOnly
		} else {
			c.state = AOnly
		}
	}
	return gA, gB
}

// curveGains returns (gainA, gainB) for progress in [0,1] where 0 means
// fully A and 1 means fully B, under the selected law.
func (c *Crossfader) curveGains(progress float64) (gainA, gainB float64) {
	progress = clamp(progress, 0, 1)
	switch c.curve {
	case EqualPowerSqrt:
		gainB = math.Sqrt(progress)
		gainA = math.Sqrt(1 - progress)
	case SCurve:
		s := sCurve(progress)
		gainA = 1 - s
		gainB = s
	case Linear:
		gainA = 1 - progress
		gainB = progress
	case ConstantPower:
		gainA = math.Cos(progress * math.Pi / 2)
		gainB = math.Sin(progress * math.Pi / 2)
	default: // EqualPowerSine
		angle := progress * math.Pi / 2
		gainA = math.Cos(angle)
		gainB = math.Sin(angle)
	}
	return
}

func sCurve(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	p := t * t
	q := (1 - t) * (1 - t)
	return p / (p + q)
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
