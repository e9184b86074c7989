// Package postchain implements the eight-stage Post-Nonlinear Chain that
// turns one engine's raw mono output into a slot's stereo pair: pre-gain,
// amplitude, HPF, LPF-with-resonance, soft clip, ADSR VCA, volume, pan.
package postchain

import (
	"math"

	"github.com/gridsynth/ether-core/internal/dsp"
	"github.com/gridsynth/ether-core/internal/envelope"
	"github.com/gridsynth/ether-core/internal/param"
)

const silenceHoldoffSamples = 2048 // ~43ms at 48kHz before the chain short-circuits

// Chain runs the fixed eight-stage pipeline of §4.2. Every smoothed
// parameter goes through a param.Smoother; nothing writes raw into the
// filters or VCA directly.
type Chain struct {
	sampleRate float64

	preGain   *param.Smoother // HARMONICS fallback, [1,3]
	amplitude *param.Smoother // [0,2]
	hpfCutoff *param.Smoother // 20Hz-1kHz
	lpfCutoff *param.Smoother // 200Hz-20kHz, TIMBRE fallback
	resonance *param.Smoother
	clip      *param.Smoother // drive [0,1]
	volume    *param.Smoother // [0,1]
	pan       *param.Smoother // [-1,1]

	hpf *dsp.Biquad
	lpf *dsp.SVF
	env *envelope.Envelope

	// attackNorm..releaseNorm cache the last normalized ADSR VCA value per
	// stage id, since the router writes one ParamID at a time but
	// envelope.Envelope.SetADSR takes all four seconds values together.
	attackNorm, decayNorm, sustainNorm, releaseNorm float64

	// nativeFilter is set by the slot/router when the bound engine declares
	// its own cutoff/resonance; the LPF stage is skipped in that case and
	// lpfCutoff instead carries the TIMBRE value for the engine to consume.
	nativeFilter bool

	silentSamples int
	lastActive    bool
}

// New creates a Chain for the given sample rate with the teacher's default
// smoother configuration (audible, exponential, 20ms).
func New(sampleRate float64) *Chain {
	cfg := param.DefaultConfig()
	c := &Chain{sampleRate: sampleRate}
	c.preGain = param.New(sampleRate, cfg)
	c.amplitude = param.New(sampleRate, cfg)
	c.hpfCutoff = param.New(sampleRate, cfg)
	c.lpfCutoff = param.New(sampleRate, cfg)
	c.resonance = param.New(sampleRate, cfg)
	c.clip = param.New(sampleRate, cfg)
	c.volume = param.New(sampleRate, cfg)
	c.pan = param.New(sampleRate, cfg)

	c.preGain.SetValue(1.0 / 2) // normalized 0.5 -> mid of [1,3] via mapPreGain
	c.amplitude.SetValue(0.5)   // normalized -> 1.0 of [0,2]
	c.hpfCutoff.SetValue(0)     // 20Hz, effectively off
	c.lpfCutoff.SetValue(1)     // 20kHz, effectively open
	c.resonance.SetValue(0)
	c.clip.SetValue(0)
	c.volume.SetValue(0.8)
	c.pan.SetValue(0.5) // center

	c.hpf = dsp.NewBiquad(sampleRate, dsp.HighPass, 20, 0.707)
	c.lpf = dsp.NewSVF(sampleRate)
	c.env = envelope.New(sampleRate)
	c.attackNorm = param.UnmapEnvelopeTime(0.005)
	c.decayNorm = param.UnmapEnvelopeTime(0.15)
	c.sustainNorm = 0.8
	c.releaseNorm = param.UnmapEnvelopeTime(0.2)
	c.env.SetADSR(0.005, 0.15, 0.8, 0.2)
	return c
}

// SetNativeFilter tells the chain whether the bound engine owns its own
// cutoff/resonance, per the router's declaration set (§4.3).
func (c *Chain) SetNativeFilter(native bool) { c.nativeFilter = native }

// SetHarmonics drives the pre-gain stage from the HARMONICS macro when the
// engine does not natively consume it.
func (c *Chain) SetHarmonics(value float64) { c.preGain.SetTarget(clamp01(value)) }

func (c *Chain) SetAmplitude(value float64) { c.amplitude.SetTarget(clamp01(value)) }
func (c *Chain) SetHPF(value float64)       { c.hpfCutoff.SetTarget(clamp01(value)) }

// SetLPF drives the cutoff stage. When the engine owns its native filter,
// this still updates lpfCutoff so the router can read it back as the
// TIMBRE value forwarded to the engine instead.
func (c *Chain) SetLPF(value float64)       { c.lpfCutoff.SetTarget(clamp01(value)) }
func (c *Chain) SetResonance(value float64) { c.resonance.SetTarget(clamp01(value)) }
func (c *Chain) SetClip(value float64)      { c.clip.SetTarget(clamp01(value)) }
func (c *Chain) SetVolume(value float64)    { c.volume.SetTarget(clamp01(value)) }
func (c *Chain) SetPan(value float64)       { c.pan.SetTarget(clamp01((value + 1) / 2)) }

// NativeCutoffValue returns the current normalized LPF target, used by the
// router to forward TIMBRE to an engine that owns its own filter.
func (c *Chain) NativeCutoffValue() float64 { return c.lpfCutoff.Target() }

// SetADSR configures the chain's own VCA envelope (the slot's envelope
// parameters, distinct from any per-voice envelope inside the engine).
func (c *Chain) SetADSR(attackSec, decaySec, sustain, releaseSec float64) {
	c.env.SetADSR(attackSec, decaySec, sustain, releaseSec)
}

// SetAttack/SetDecay/SetSustain/SetRelease each take one normalized [0,1]
// ADSR VCA stage value (§4.2 stage 6: attack/decay/release exponential
// [1ms,10s], sustain linear [0,1]), cache it alongside the other three, and
// re-apply the combined envelope — the router resolves one ParamID at a
// time, but the underlying envelope.Envelope wants all four together.
func (c *Chain) SetAttack(value float64) {
	c.attackNorm = clamp01(value)
	c.reapplyADSR()
}

func (c *Chain) SetDecay(value float64) {
	c.decayNorm = clamp01(value)
	c.reapplyADSR()
}

func (c *Chain) SetSustain(value float64) {
	c.sustainNorm = clamp01(value)
	c.reapplyADSR()
}

func (c *Chain) SetRelease(value float64) {
	c.releaseNorm = clamp01(value)
	c.reapplyADSR()
}

func (c *Chain) reapplyADSR() {
	c.env.SetADSR(
		param.MapEnvelopeTime(c.attackNorm),
		param.MapEnvelopeTime(c.decayNorm),
		c.sustainNorm,
		param.MapEnvelopeTime(c.releaseNorm),
	)
}

// NoteOn/NoteOff drive the chain's VCA envelope; the slot calls these
// alongside the engine's own note lifecycle.
func (c *Chain) NoteOn(velocity float64) { c.env.NoteOn(velocity) }
func (c *Chain) NoteOff()                { c.env.NoteOff() }

// Active reports whether the chain's VCA envelope is still producing sound.
func (c *Chain) Active() bool { return c.env.Active() }

func mapPreGain(x float64) float64  { return 1 + clamp01(x)*2 }   // [1,3]
func mapAmplitude(x float64) float64 { return clamp01(x) * 2 }     // [0,2]
func mapClipDrive(x float64) float64 { return 1 + clamp01(x)*3 }   // [1,4]

// softClip is a fast rational approximation of tanh, grounded on the
// teacher's distortion.go waveshaping stage but using a cheaper rational
// form instead of math.Tanh to keep the per-sample cost low.
func softClip(x, drive float64) float64 {
	x *= drive
	ax := math.Abs(x)
	if ax > 3 {
		if x > 0 {
			return 1
		}
		return -1
	}
	return x * (27 + x*x) / (27 + 9*x*x)
}

// ProcessSample runs one mono sample through all eight stages and returns
// the stereo pair. rawActive tells the chain whether the upstream engine is
// still producing signal this sample, used for the silence holdoff.
func (c *Chain) ProcessSample(in float64, rawActive bool) (left, right float64) {
	in = dsp.Sanitize(in)

	if c.shouldHoldoff(in, rawActive) {
		return 0, 0
	}

	preGain := mapPreGain(c.preGain.Process())
	stage := dsp.Sanitize(in * preGain)

	amp := mapAmplitude(c.amplitude.Process())
	stage = dsp.Sanitize(stage * amp)

	hpfCutoffHz := param.MapExponential(c.hpfCutoff.Process(), 20, 1000)
	c.hpf.SetParams(dsp.HighPass, hpfCutoffHz, 0.707)
	stage = dsp.Sanitize(c.hpf.Process(stage))

	if !c.nativeFilter {
		lpfCutoffHz := param.MapExponential(c.lpfCutoff.Process(), 200, 20000)
		q := param.MapResonance(c.resonance.Process())
		c.lpf.SetParams(lpfCutoffHz, q)
		lp, _, _, _ := c.lpf.Process(stage)
		stage = dsp.Sanitize(lp)
	} else {
		// keep the smoother advancing so GetSmoothingProgress stays accurate
		// even though this stage's filter is bypassed
		c.lpfCutoff.Process()
		c.resonance.Process()
	}

	drive := mapClipDrive(c.clip.Process())
	clipped := softClip(stage, drive)
	stage = dsp.Sanitize(clipped / drive) // post-gain compensates to keep unity at small signals

	envLevel := c.env.Process()
	stage = dsp.Sanitize(stage * envLevel)

	vol := param.PerceptualVolume(c.volume.Process())
	stage = dsp.Sanitize(stage * vol)

	panPos := c.pan.Process()*2 - 1
	l, r := equalPowerPan(stage, panPos)
	return dsp.Sanitize(l), dsp.Sanitize(r)
}

// ProcessBlock runs a full block of mono input through the chain, filling
// the interleaved-free stereo output slices.
func (c *Chain) ProcessBlock(in []float64, active bool, outL, outR []float64) {
	for i := range in {
		outL[i], outR[i] = c.ProcessSample(in[i], active)
	}
}

func (c *Chain) shouldHoldoff(in float64, rawActive bool) bool {
	envActive := c.env.Active()
	silent := !rawActive && math.Abs(in) < 1e-6
	if !envActive && silent {
		c.silentSamples++
	} else {
		c.silentSamples = 0
	}
	return c.silentSamples > silenceHoldoffSamples
}

// equalPowerPan splits a mono signal into a stereo pair using an equal-power
// (sin/cos quarter-wave) law across pos in [-1,1].
func equalPowerPan(in, pos float64) (left, right float64) {
	pos = clamp(pos, -1, 1)
	angle := (pos + 1) * math.Pi / 4
	return in * math.Cos(angle), in * math.Sin(angle)
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
