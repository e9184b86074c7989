package engine

import (
	"math"

	"github.com/gridsynth/ether-core/internal/envelope"
)

const harmonicsPartialCount = 16

type harmVoice struct {
	active   bool
	note     int
	velocity float64
	phase    [harmonicsPartialCount]float64
	freq     float64
	env      *envelope.Envelope
}

// Harmonics is the harmonics engine: a bank of sine partials whose weights
// fall off per the Harmonics macro (higher values admit more, brighter
// partials), an additive counterpart to the wavetable engine's table morph.
type Harmonics struct {
	sampleRate   float64
	sampleRateOK bool
	voices       []*harmVoice

	harmonicsAmt float64 // 0-1: how many/how bright the partials are
	tilt         float64 // Morph: spectral tilt, odd vs even harmonic emphasis
	attack, decay, sustain, release float64
	cpu float64
}

// NewHarmonics creates a harmonics engine with the given polyphony.
func NewHarmonics(voiceCount int) *Harmonics {
	h := &Harmonics{
		harmonicsAmt: 0.5,
		attack:       0.01, decay: 0.3, sustain: 0.6, release: 0.4,
	}
	h.SetVoiceCount(voiceCount)
	return h
}

func (h *Harmonics) Initialize(sampleRate float64) error {
	h.sampleRate = sampleRate
	h.sampleRateOK = sampleRate > 0
	for _, v := range h.voices {
		v.env = envelope.New(sampleRate)
	}
	return nil
}

func (h *Harmonics) SetVoiceCount(n int) {
	n = clampInt(n, 1, MaxVoicesPerSlot)
	for len(h.voices) < n {
		h.voices = append(h.voices, &harmVoice{env: envelope.New(h.sampleRate)})
	}
	if len(h.voices) > n {
		h.voices = h.voices[:n]
	}
}

func (h *Harmonics) NoteOn(n Note) {
	var v *harmVoice
	for _, cand := range h.voices {
		if !cand.env.Active() {
			v = cand
			break
		}
	}
	if v == nil {
		v = h.voices[0]
		for _, cand := range h.voices {
			if cand.env.Level() < v.env.Level() {
				v = cand
			}
		}
	}
	v.active = true
	v.note = n.Number
	v.velocity = n.Velocity
	v.freq = noteToFreq(n.Number)
	for i := range v.phase {
		v.phase[i] = 0
	}
	v.env.SetADSR(h.attack, h.decay, h.sustain, h.release)
	v.env.NoteOn(n.Velocity)
}

func (h *Harmonics) NoteOff(note int) {
	for _, v := range h.voices {
		if v.active && v.note == note {
			v.env.NoteOff()
		}
	}
}

func (h *Harmonics) AllNotesOff() {
	for _, v := range h.voices {
		v.env.NoteOff()
	}
}

// partialWeight returns the mix weight of harmonic number h (1-indexed)
// given the HARMONICS macro's brightness and the Morph macro's odd/even tilt.
func (h *Harmonics) partialWeight(harmonic int) float64 {
	brightness := h.harmonicsAmt
	rolloff := 1.0 + (1-brightness)*6
	w := 1 / math.Pow(float64(harmonic), rolloff)
	if harmonic%2 == 0 {
		w *= 1 - h.tilt
	} else {
		w *= 0.5 + 0.5*h.tilt
	}
	return w
}

func (h *Harmonics) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !h.sampleRateOK {
		return
	}
	active := 0
	for _, v := range h.voices {
		if v.active && !v.env.Active() {
			v.active = false
		}
		if !v.active {
			continue
		}
		active++
		for i := range out {
			var sum, wsum float64
			for p := 0; p < harmonicsPartialCount; p++ {
				harmonic := p + 1
				w := h.partialWeight(harmonic)
				sum += math.Sin(2*math.Pi*v.phase[p]) * w
				wsum += w
				v.phase[p] += v.freq * float64(harmonic) / h.sampleRate
				if v.phase[p] >= 1 {
					v.phase[p] -= math.Floor(v.phase[p])
				}
			}
			if wsum > 0 {
				sum /= wsum
			}
			out[i] += sum * v.env.Process() * (0.3 + 0.7*v.velocity)
		}
	}
	h.cpu = float64(active) / float64(maxInt(len(h.voices), 1))
}

func (h *Harmonics) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamHarmonics:
		h.harmonicsAmt = value
	case ParamMorph:
		h.tilt = value
	case ParamAttack:
		h.attack = 0.001 + value*2
	case ParamDecay:
		h.decay = 0.001 + value*2
	case ParamSustain:
		h.sustain = value
	case ParamRelease:
		h.release = 0.001 + value*5
	}
}

func (h *Harmonics) HasParameter(id ParamID) bool {
	switch id {
	case ParamHarmonics, ParamMorph, ParamAttack, ParamDecay, ParamSustain, ParamRelease:
		return true
	}
	return false
}

func (h *Harmonics) GetParameter(id ParamID) float64 {
	switch id {
	case ParamHarmonics:
		return h.harmonicsAmt
	case ParamMorph:
		return h.tilt
	case ParamAttack:
		return h.attack
	case ParamDecay:
		return h.decay
	case ParamSustain:
		return h.sustain
	case ParamRelease:
		return h.release
	}
	return 0
}

func (h *Harmonics) ActiveVoices() int {
	n := 0
	for _, v := range h.voices {
		if v.active {
			n++
		}
	}
	return n
}

func (h *Harmonics) CPUEstimate() float64 { return h.cpu }
