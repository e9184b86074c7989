package engine

import (
	"github.com/gridsynth/ether-core/internal/dsp"
	"github.com/gridsynth/ether-core/internal/envelope"
)

const noiseGrainSlots = 8

type noiseGrain struct {
	active bool
	filt   *dsp.Biquad
	env    *envelope.Envelope
	gain   float64
}

// noiseLFSR is a simple linear-feedback-shift-register noise source, the
// same generator idiom the teacher's FM engine uses for its noise waveform.
type noiseLFSR struct{ state uint32 }

func newNoiseLFSR(seed uint32) *noiseLFSR {
	if seed == 0 {
		seed = 0x1
	}
	return &noiseLFSR{state: seed}
}

func (n *noiseLFSR) next() float64 {
	bit := ((n.state >> 0) ^ (n.state >> 2) ^ (n.state >> 3) ^ (n.state >> 5)) & 1
	n.state = (n.state >> 1) | (bit << 30)
	return float64(n.state&0xFFFF)/32768 - 1
}

// NoiseParticles is the noise-particles engine: short filtered noise grains
// scheduled like a granular cloud but sourced from an LFSR noise generator
// rather than a buffer, each grain an independently filtered/enveloped burst.
type NoiseParticles struct {
	sampleRate   float64
	sampleRateOK bool
	grains       [noiseGrainSlots]*noiseGrain
	noise        *noiseLFSR
	active       bool
	velocity     float64
	note         int

	density    float64 // Harmonics macro: how many grains overlap
	cutoffHz   float64 // Timbre macro: grain filter center
	attack, decay, sustain, release float64
	cpu float64
}

// NewNoiseParticles creates a noise-particles engine.
func NewNoiseParticles() *NoiseParticles {
	n := &NoiseParticles{
		noise:    newNoiseLFSR(0xACE1),
		density:  0.5,
		cutoffHz: 2000,
		attack:   0.001, decay: 0.05, sustain: 0.3, release: 0.1,
	}
	for i := range n.grains {
		n.grains[i] = &noiseGrain{gain: 1}
	}
	return n
}

func (n *NoiseParticles) Initialize(sampleRate float64) error {
	n.sampleRate = sampleRate
	n.sampleRateOK = sampleRate > 0
	for _, g := range n.grains {
		g.filt = dsp.NewBiquad(sampleRate, dsp.BandPass, n.cutoffHz, 2)
		g.env = envelope.New(sampleRate)
	}
	return nil
}

func (n *NoiseParticles) SetVoiceCount(int) {} // grain count is fixed; density controls activity

func (n *NoiseParticles) NoteOn(note Note) {
	n.active = true
	n.note = note.Number
	n.velocity = note.Velocity
	active := 1 + int(n.density*float64(noiseGrainSlots-1))
	for i, g := range n.grains {
		if i >= active {
			continue
		}
		detune := 1 + float64(i-active/2)*0.1
		g.filt.SetParams(dsp.BandPass, n.cutoffHz*detune, 2+n.density*8)
		g.env.SetADSR(n.attack, n.decay, n.sustain, n.release)
		g.env.NoteOn(note.Velocity)
		g.active = true
	}
}

func (n *NoiseParticles) NoteOff(note int) {
	if note != n.note {
		return
	}
	for _, g := range n.grains {
		g.env.NoteOff()
	}
}

func (n *NoiseParticles) AllNotesOff() {
	for _, g := range n.grains {
		g.env.NoteOff()
	}
}

func (n *NoiseParticles) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !n.sampleRateOK || !n.active {
		return
	}
	anyActive := false
	for _, g := range n.grains {
		if !g.active || !g.env.Active() {
			continue
		}
		anyActive = true
		for i := range out {
			raw := n.noise.next()
			out[i] += g.filt.Process(raw) * g.env.Process() * g.gain * (0.3 + 0.7*n.velocity)
		}
	}
	if !anyActive {
		n.active = false
		n.cpu = 0
	} else {
		n.cpu = 1
	}
}

func (n *NoiseParticles) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamHarmonics:
		n.density = value
	case ParamTimbre, ParamCutoff:
		n.cutoffHz = 200 + value*9800
	case ParamAttack:
		n.attack = 0.0005 + value*0.5
	case ParamDecay:
		n.decay = 0.001 + value*1
	case ParamSustain:
		n.sustain = value
	case ParamRelease:
		n.release = 0.001 + value*2
	}
}

func (n *NoiseParticles) HasParameter(id ParamID) bool {
	switch id {
	case ParamHarmonics, ParamTimbre, ParamCutoff, ParamAttack, ParamDecay, ParamSustain, ParamRelease:
		return true
	}
	return false
}

func (n *NoiseParticles) GetParameter(id ParamID) float64 {
	switch id {
	case ParamHarmonics:
		return n.density
	case ParamTimbre, ParamCutoff:
		return n.cutoffHz
	case ParamAttack:
		return n.attack
	case ParamDecay:
		return n.decay
	case ParamSustain:
		return n.sustain
	case ParamRelease:
		return n.release
	}
	return 0
}

func (n *NoiseParticles) ActiveVoices() int {
	c := 0
	for _, g := range n.grains {
		if g.active && g.env.Active() {
			c++
		}
	}
	return c
}

func (n *NoiseParticles) CPUEstimate() float64 { return n.cpu }
