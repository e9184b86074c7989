package fx

import (
	"math"

	"github.com/gridsynth/ether-core/internal/dsp"
	"github.com/gridsynth/ether-core/internal/param"
)

const (
	minDelayMs = 1
	maxDelayMs = 2000
	maxFeedback = 0.95
)

// Delay is the global stereo delay bus: cross-feedback delay lines with
// low/high cut in the feedback path, stereo spread, and an LFO-driven
// modulation of delay time for chorus-like motion, generalized from the
// teacher's simple cross-feedback Delay per §4.7's fuller parameter list.
type Delay struct {
	sampleRate float64

	timeMs     *param.Smoother // maps to [1ms, 2s]
	feedback   *param.Smoother // clamped to [0, 0.95]
	lowCut     *param.Smoother
	highCut    *param.Smoother
	modDepth   *param.Smoother
	modRateHz  *param.Smoother
	spread     *param.Smoother
	wetDry     *param.Smoother

	bufL, bufR []float64
	pos        int

	lowCutL, lowCutR   *dsp.Biquad
	highCutL, highCutR *dsp.Biquad

	modPhase float64
}

// NewDelay creates the global delay bus at the given sample rate.
func NewDelay(sampleRate float64) *Delay {
	cfg := param.DefaultConfig()
	d := &Delay{sampleRate: sampleRate}
	d.timeMs = param.New(sampleRate, cfg)
	d.feedback = param.New(sampleRate, cfg)
	d.lowCut = param.New(sampleRate, cfg)
	d.highCut = param.New(sampleRate, cfg)
	d.modDepth = param.New(sampleRate, cfg)
	d.modRateHz = param.New(sampleRate, cfg)
	d.spread = param.New(sampleRate, cfg)
	d.wetDry = param.New(sampleRate, cfg)

	d.timeMs.SetValue(param.UnmapExponential(500, minDelayMs, maxDelayMs)) // 500ms on the exponential [1ms,2s] mapping
	d.feedback.SetValue(0.4)
	d.lowCut.SetValue(0)
	d.highCut.SetValue(1)
	d.modDepth.SetValue(0)
	d.modRateHz.SetValue(0.2)
	d.spread.SetValue(0)
	d.wetDry.SetValue(0.3)

	maxSamples := int(maxDelayMs*0.001*sampleRate) + 1
	d.bufL = make([]float64, maxSamples)
	d.bufR = make([]float64, maxSamples)

	d.lowCutL = dsp.NewBiquad(sampleRate, dsp.HighPass, 20, 0.707)
	d.lowCutR = dsp.NewBiquad(sampleRate, dsp.HighPass, 20, 0.707)
	d.highCutL = dsp.NewBiquad(sampleRate, dsp.LowPass, 18000, 0.707)
	d.highCutR = dsp.NewBiquad(sampleRate, dsp.LowPass, 18000, 0.707)
	return d
}

func (d *Delay) SetTime(v float64)     { d.timeMs.SetTarget(clamp01(v)) }
func (d *Delay) SetFeedback(v float64) { d.feedback.SetTarget(clamp01(v)) }
func (d *Delay) SetLowCut(v float64)   { d.lowCut.SetTarget(clamp01(v)) }
func (d *Delay) SetHighCut(v float64)  { d.highCut.SetTarget(clamp01(v)) }
func (d *Delay) SetModDepth(v float64) { d.modDepth.SetTarget(clamp01(v)) }
func (d *Delay) SetModRate(v float64)  { d.modRateHz.SetTarget(clamp01(v)) }
func (d *Delay) SetSpread(v float64)   { d.spread.SetTarget(clamp01(v)) }
func (d *Delay) SetWetDry(v float64)   { d.wetDry.SetTarget(clamp01(v)) }

// ProcessSample runs one stereo sample through the bus.
func (d *Delay) ProcessSample(inL, inR float64) (outL, outR float64) {
	inL, inR = dsp.Sanitize(inL), dsp.Sanitize(inR)

	timeMs := param.MapExponential(d.timeMs.Process(), minDelayMs, maxDelayMs)
	fb := d.feedback.Process() * maxFeedback
	lowCutHz := param.MapExponential(d.lowCut.Process(), 20, 1000)
	highCutHz := param.MapExponential(d.highCut.Process(), 1000, 18000)
	modDepthMs := d.modDepth.Process() * 20 // up to 20ms of chorus-like wobble
	modRateHz := param.MapLFORate(d.modRateHz.Process())
	spread := d.spread.Process()
	wet := d.wetDry.Process()

	d.modPhase += modRateHz / d.sampleRate
	for d.modPhase >= 1 {
		d.modPhase -= 1
	}
	wobble := math.Sin(2*math.Pi*d.modPhase) * modDepthMs

	n := len(d.bufL)
	baseSamples := timeMs * 0.001 * d.sampleRate
	leftSamples := clampSamples(baseSamples+(wobble*0.001*d.sampleRate)+spread*baseSamples*0.1, n)
	rightSamples := clampSamples(baseSamples-(wobble*0.001*d.sampleRate)-spread*baseSamples*0.1, n)

	readL := d.readInterp(d.bufL, leftSamples)
	readR := d.readInterp(d.bufR, rightSamples)

	d.lowCutL.SetParams(dsp.HighPass, lowCutHz, 0.707)
	d.lowCutR.SetParams(dsp.HighPass, lowCutHz, 0.707)
	d.highCutL.SetParams(dsp.LowPass, highCutHz, 0.707)
	d.highCutR.SetParams(dsp.LowPass, highCutHz, 0.707)

	fbL := d.highCutL.Process(d.lowCutL.Process(readL)) * fb
	fbR := d.highCutR.Process(d.lowCutR.Process(readR)) * fb

	d.bufL[d.pos] = inL + fbL
	d.bufR[d.pos] = inR + fbR
	d.pos++
	if d.pos >= n {
		d.pos = 0
	}

	outL = dsp.Sanitize(inL*(1-wet) + readL*wet)
	outR = dsp.Sanitize(inR*(1-wet) + readR*wet)
	return
}

func (d *Delay) readInterp(buf []float64, delaySamples float64) float64 {
	n := len(buf)
	readPos := float64(d.pos) - delaySamples
	for readPos < 0 {
		readPos += float64(n)
	}
	i0 := int(readPos) % n
	i1 := (i0 + 1) % n
	frac := readPos - math.Floor(readPos)
	return buf[i0]*(1-frac) + buf[i1]*frac
}

func clampSamples(v float64, n int) float64 {
	if v < 0 {
		return 0
	}
	max := float64(n - 1)
	if v > max {
		return max
	}
	return v
}
