package engine

import (
	"math"

	"github.com/gridsynth/ether-core/internal/envelope"
)

type tidesVoice struct {
	active   bool
	note     int
	velocity float64
	phase    float64 // 0-1 position through one rise/fall cycle
	freq     float64
	env      *envelope.Envelope
}

// Tides is the tides engine: a dual-ramp slope generator in the Mutable
// Instruments Tides lineage — a rise segment of configurable shape followed
// by a fall segment, the ratio between them (Timbre) continuously morphing
// the waveform from a sawtooth through a triangle to a ramp-down sawtooth,
// with Morph bending the segment curvature from linear to exponential.
type Tides struct {
	sampleRate   float64
	sampleRateOK bool
	voices       []*tidesVoice

	riseFraction float64 // Timbre: 0=instant rise/long fall, 1=long rise/instant fall
	curve        float64 // Morph: 0=linear segments, 1=exponential segments
	attack, decay, sustain, release float64
	cpu float64
}

// NewTides creates a tides engine with the given polyphony.
func NewTides(voiceCount int) *Tides {
	t := &Tides{
		riseFraction: 0.5,
		attack:       0.005, decay: 0.2, sustain: 0.8, release: 0.3,
	}
	t.SetVoiceCount(voiceCount)
	return t
}

func (t *Tides) Initialize(sampleRate float64) error {
	t.sampleRate = sampleRate
	t.sampleRateOK = sampleRate > 0
	for _, v := range t.voices {
		v.env = envelope.New(sampleRate)
	}
	return nil
}

func (t *Tides) SetVoiceCount(n int) {
	n = clampInt(n, 1, MaxVoicesPerSlot)
	for len(t.voices) < n {
		t.voices = append(t.voices, &tidesVoice{env: envelope.New(t.sampleRate)})
	}
	if len(t.voices) > n {
		t.voices = t.voices[:n]
	}
}

func (t *Tides) NoteOn(n Note) {
	var v *tidesVoice
	for _, cand := range t.voices {
		if !cand.env.Active() {
			v = cand
			break
		}
	}
	if v == nil {
		v = t.voices[0]
		for _, cand := range t.voices {
			if cand.env.Level() < v.env.Level() {
				v = cand
			}
		}
	}
	v.active = true
	v.note = n.Number
	v.velocity = n.Velocity
	v.freq = noteToFreq(n.Number)
	v.phase = 0
	v.env.SetADSR(t.attack, t.decay, t.sustain, t.release)
	v.env.NoteOn(n.Velocity)
}

func (t *Tides) NoteOff(note int) {
	for _, v := range t.voices {
		if v.active && v.note == note {
			v.env.NoteOff()
		}
	}
}

func (t *Tides) AllNotesOff() {
	for _, v := range t.voices {
		v.env.NoteOff()
	}
}

// slopeSample evaluates the dual-ramp waveform at phase p in [0,1).
func (t *Tides) slopeSample(p float64) float64 {
	rise := t.riseFraction
	if rise < 0.01 {
		rise = 0.01
	}
	if rise > 0.99 {
		rise = 0.99
	}
	var frac, out float64
	if p < rise {
		frac = p / rise
		out = shapeCurve(frac, t.curve)
	} else {
		frac = (p - rise) / (1 - rise)
		out = 1 - shapeCurve(frac, t.curve)
	}
	return out*2 - 1
}

func shapeCurve(x, curve float64) float64 {
	if curve <= 0 || x <= 0 {
		return x
	}
	// blend linear -> x^(1+3*curve) exponential segment shape
	exp := 1 + curve*3
	return x*(1-curve) + math.Pow(x, exp)*curve
}

func (t *Tides) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !t.sampleRateOK {
		return
	}
	active := 0
	for _, v := range t.voices {
		if v.active && !v.env.Active() {
			v.active = false
		}
		if !v.active {
			continue
		}
		active++
		for i := range out {
			sample := t.slopeSample(v.phase)
			v.phase += v.freq / t.sampleRate
			if v.phase >= 1 {
				v.phase -= math.Floor(v.phase)
			}
			out[i] += sample * v.env.Process() * (0.3 + 0.7*v.velocity)
		}
	}
	t.cpu = float64(active) / float64(maxInt(len(t.voices), 1))
}

func (t *Tides) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamTimbre:
		t.riseFraction = value
	case ParamMorph:
		t.curve = value
	case ParamAttack:
		t.attack = 0.001 + value*2
	case ParamDecay:
		t.decay = 0.001 + value*2
	case ParamSustain:
		t.sustain = value
	case ParamRelease:
		t.release = 0.001 + value*5
	}
}

func (t *Tides) HasParameter(id ParamID) bool {
	switch id {
	case ParamTimbre, ParamMorph, ParamAttack, ParamDecay, ParamSustain, ParamRelease:
		return true
	}
	return false
}

func (t *Tides) GetParameter(id ParamID) float64 {
	switch id {
	case ParamTimbre:
		return t.riseFraction
	case ParamMorph:
		return t.curve
	case ParamAttack:
		return t.attack
	case ParamDecay:
		return t.decay
	case ParamSustain:
		return t.sustain
	case ParamRelease:
		return t.release
	}
	return 0
}

func (t *Tides) ActiveVoices() int {
	n := 0
	for _, v := range t.voices {
		if v.active {
			n++
		}
	}
	return n
}

func (t *Tides) CPUEstimate() float64 { return t.cpu }
