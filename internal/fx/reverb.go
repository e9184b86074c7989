// Package fx implements the two Global FX Buses (§4.7): a Schroeder/Freeverb
// reverb and a stereo cross-feedback delay, each with its own smoothed
// parameter block. Both buses are promoted from the teacher's per-score
// effect chain (internal/effects/reverb.go, delay.go) into process-lifetime
// global buses fed by per-slot send levels.
package fx

import (
	"github.com/gridsynth/ether-core/internal/dsp"
	"github.com/gridsynth/ether-core/internal/param"
)

const numCombs = 4
const numAllpass = 2

type combFilter struct {
	buf      []float64
	pos      int
	feedback float64
	damp     float64
	lastOut  float64
}

func newComb(length int) *combFilter {
	if length < 1 {
		length = 1
	}
	return &combFilter{buf: make([]float64, length)}
}

func (c *combFilter) process(in float64) float64 {
	out := c.buf[c.pos]
	c.lastOut = c.damp*c.lastOut + (1-c.damp)*out
	c.buf[c.pos] = in + c.lastOut*c.feedback
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

type allpassFilter struct {
	buf []float64
	pos int
	fb  float64
}

func newAllpass(length int, fb float64) *allpassFilter {
	if length < 1 {
		length = 1
	}
	return &allpassFilter{buf: make([]float64, length), fb: fb}
}

func (a *allpassFilter) process(in float64) float64 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

// Reverb is the global reverb bus: N comb filters feeding M allpass filters
// per channel, a pre-delay buffer, and smoothed room-size/damping/wet-dry/
// width parameters, grounded on the teacher's Reverb topology and generalized
// from a mono Schroeder tank to a stereo bus with pre-delay and width.
type Reverb struct {
	sampleRate float64

	roomSize *param.Smoother
	damping  *param.Smoother
	preDelay *param.Smoother // 0-200ms normalized
	wetDry   *param.Smoother
	width    *param.Smoother

	combsL, combsR   [numCombs]*combFilter
	allpassL, allpassR [numAllpass]*allpassFilter
	preDelayBuf        []float64
	preDelayPos        int
}

const maxPreDelayMs = 200

var combRatios = [numCombs]float64{1.0, 1.117, 1.271, 1.437}
var allpassRatios = [numAllpass]float64{0.347, 0.213}

// NewReverb creates the global reverb bus at the given sample rate.
func NewReverb(sampleRate float64) *Reverb {
	cfg := param.DefaultConfig()
	r := &Reverb{sampleRate: sampleRate}
	r.roomSize = param.New(sampleRate, cfg)
	r.damping = param.New(sampleRate, cfg)
	r.preDelay = param.New(sampleRate, cfg)
	r.wetDry = param.New(sampleRate, cfg)
	r.width = param.New(sampleRate, cfg)

	r.roomSize.SetValue(0.5)
	r.damping.SetValue(0.5)
	r.preDelay.SetValue(0)
	r.wetDry.SetValue(0.3)
	r.width.SetValue(1.0)

	base := int(sampleRate * 0.05 * 0.5) // roomSize=0.5 baseline
	if base < 10 {
		base = 10
	}
	for i := 0; i < numCombs; i++ {
		n := int(float64(base) * combRatios[i])
		r.combsL[i] = newComb(n)
		r.combsR[i] = newComb(n + 23) // channel decorrelation offset
	}
	for i := 0; i < numAllpass; i++ {
		n := int(float64(base) * allpassRatios[i])
		r.allpassL[i] = newAllpass(n, 0.5)
		r.allpassR[i] = newAllpass(n+17, 0.5)
	}

	maxPreDelaySamples := int(maxPreDelayMs * 0.001 * sampleRate)
	if maxPreDelaySamples < 1 {
		maxPreDelaySamples = 1
	}
	r.preDelayBuf = make([]float64, maxPreDelaySamples*2) // interleaved L/R
	return r
}

func (r *Reverb) SetRoomSize(v float64) { r.roomSize.SetTarget(clamp01(v)) }
func (r *Reverb) SetDamping(v float64)  { r.damping.SetTarget(clamp01(v)) }
func (r *Reverb) SetPreDelay(v float64) { r.preDelay.SetTarget(clamp01(v)) }
func (r *Reverb) SetWetDry(v float64)   { r.wetDry.SetTarget(clamp01(v)) }
func (r *Reverb) SetWidth(v float64)    { r.width.SetTarget(clamp01(v)) }

// ProcessSample runs one stereo sample through the bus and returns the bus
// input and the reverb tank output mixed by the wet/dry parameter.
func (r *Reverb) ProcessSample(inL, inR float64) (outL, outR float64) {
	inL, inR = dsp.Sanitize(inL), dsp.Sanitize(inR)

	roomSize := r.roomSize.Process()
	feedback := 0.28 + roomSize*0.7
	damp := r.damping.Process()
	preDelayMs := r.preDelay.Process() * maxPreDelayMs
	wet := r.wetDry.Process()
	width := r.width.Process()

	delaySamples := int(preDelayMs * 0.001 * r.sampleRate)
	n := len(r.preDelayBuf) / 2
	if delaySamples >= n {
		delaySamples = n - 1
	}
	readPos := r.preDelayPos - delaySamples
	for readPos < 0 {
		readPos += n
	}
	pL, pR := r.preDelayBuf[readPos*2], r.preDelayBuf[readPos*2+1]
	r.preDelayBuf[r.preDelayPos*2] = inL
	r.preDelayBuf[r.preDelayPos*2+1] = inR
	r.preDelayPos++
	if r.preDelayPos >= n {
		r.preDelayPos = 0
	}

	var wetL, wetR float64
	for i := 0; i < numCombs; i++ {
		r.combsL[i].feedback, r.combsL[i].damp = feedback, damp
		r.combsR[i].feedback, r.combsR[i].damp = feedback, damp
		wetL += r.combsL[i].process(pL)
		wetR += r.combsR[i].process(pR)
	}
	wetL *= 0.25
	wetR *= 0.25
	for i := 0; i < numAllpass; i++ {
		wetL = r.allpassL[i].process(wetL)
		wetR = r.allpassR[i].process(wetR)
	}

	mid := (wetL + wetR) * 0.5
	side := (wetL - wetR) * 0.5 * width
	wetL, wetR = mid+side, mid-side

	outL = dsp.Sanitize(inL*(1-wet) + wetL*wet)
	outR = dsp.Sanitize(inR*(1-wet) + wetR*wet)
	return
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
