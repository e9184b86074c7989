package engine

import (
	"github.com/gridsynth/ether-core/internal/envelope"
	"github.com/gridsynth/ether-core/internal/osc"
)

type classicFMVoice struct {
	active   bool
	note     int
	velocity float64
	carrier  *osc.Operator
	modulator *osc.Operator
	amp      *envelope.Envelope
}

// ClassicFM is the classic-fm engine: a simple 2-operator carrier/modulator
// FM pair (DX-100-style), distinct from the 4-operator algorithm engine —
// one fixed carrier<-modulator connection with modulation index and ratio
// as its only two timbral controls.
type ClassicFM struct {
	sampleRate   float64
	sampleRateOK bool
	voices       []*classicFMVoice

	modRatio  float64
	modIndex  float64
	attack, decay, sustain, release float64
	cpu float64
}

// NewClassicFM creates a classic-fm engine with the given polyphony.
func NewClassicFM(voiceCount int) *ClassicFM {
	c := &ClassicFM{
		modRatio: 2, modIndex: 3,
		attack: 0.003, decay: 0.25, sustain: 0.6, release: 0.3,
	}
	c.SetVoiceCount(voiceCount)
	return c
}

func (c *ClassicFM) Initialize(sampleRate float64) error {
	c.sampleRate = sampleRate
	c.sampleRateOK = sampleRate > 0
	for _, v := range c.voices {
		v.carrier = osc.NewOperator(sampleRate)
		v.modulator = osc.NewOperator(sampleRate)
		v.amp = envelope.New(sampleRate)
	}
	return nil
}

func (c *ClassicFM) SetVoiceCount(n int) {
	n = clampInt(n, 1, MaxVoicesPerSlot)
	for len(c.voices) < n {
		c.voices = append(c.voices, &classicFMVoice{
			carrier: osc.NewOperator(c.sampleRate), modulator: osc.NewOperator(c.sampleRate), amp: envelope.New(c.sampleRate)})
	}
	if len(c.voices) > n {
		c.voices = c.voices[:n]
	}
}

func (c *ClassicFM) NoteOn(n Note) {
	var v *classicFMVoice
	for _, cand := range c.voices {
		if !cand.active {
			v = cand
			break
		}
	}
	if v == nil {
		v = c.voices[0]
		for _, cand := range c.voices {
			if cand.amp.Level() < v.amp.Level() {
				v = cand
			}
		}
	}
	v.active = true
	v.note = n.Number
	v.velocity = n.Velocity
	v.carrier.SetRatio(1)
	v.carrier.SetLevel(1)
	v.modulator.SetRatio(c.modRatio)
	v.modulator.SetLevel(1)
	v.carrier.SetEnvelope(c.attack, c.decay, c.sustain, c.release)
	v.modulator.SetEnvelope(c.attack*0.5, c.decay, c.sustain, c.release)
	v.carrier.NoteOn(true)
	v.modulator.NoteOn(true)
	v.amp.SetADSR(c.attack, c.decay, c.sustain, c.release)
	v.amp.NoteOn(n.Velocity)
}

func (c *ClassicFM) NoteOff(note int) {
	for _, v := range c.voices {
		if v.active && v.note == note {
			v.amp.NoteOff()
			v.carrier.NoteOff()
			v.modulator.NoteOff()
		}
	}
}

func (c *ClassicFM) AllNotesOff() {
	for _, v := range c.voices {
		v.amp.NoteOff()
		v.carrier.NoteOff()
		v.modulator.NoteOff()
	}
}

func (c *ClassicFM) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !c.sampleRateOK {
		return
	}
	active := 0
	for _, v := range c.voices {
		if v.active && !v.amp.Active() {
			v.active = false
		}
		if !v.active {
			continue
		}
		active++
		freq := noteToFreq(v.note)
		for i := range out {
			_, modOut := v.modulator.Process(freq, 0)
			_, carOut := v.carrier.Process(freq, modOut*c.modIndex)
			out[i] += carOut * v.amp.Process() * (0.3 + 0.7*v.velocity)
		}
	}
	c.cpu = float64(active) / float64(maxInt(len(c.voices), 1))
}

func (c *ClassicFM) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamHarmonics:
		c.modIndex = value * 10
	case ParamTimbre:
		c.modRatio = 1 + value*7
	case ParamAttack:
		c.attack = 0.001 + value*2
	case ParamDecay:
		c.decay = 0.001 + value*2
	case ParamSustain:
		c.sustain = value
	case ParamRelease:
		c.release = 0.001 + value*5
	}
}

func (c *ClassicFM) HasParameter(id ParamID) bool {
	switch id {
	case ParamHarmonics, ParamTimbre, ParamAttack, ParamDecay, ParamSustain, ParamRelease:
		return true
	}
	return false
}

func (c *ClassicFM) GetParameter(id ParamID) float64 {
	switch id {
	case ParamHarmonics:
		return c.modIndex / 10
	case ParamTimbre:
		return c.modRatio
	case ParamAttack:
		return c.attack
	case ParamDecay:
		return c.decay
	case ParamSustain:
		return c.sustain
	case ParamRelease:
		return c.release
	}
	return 0
}

func (c *ClassicFM) ActiveVoices() int {
	n := 0
	for _, v := range c.voices {
		if v.active {
			n++
		}
	}
	return n
}

func (c *ClassicFM) CPUEstimate() float64 { return c.cpu }
