package engine

import (
	"math"

	"github.com/gridsynth/ether-core/internal/dsp"
)

const modalModeCount = 6

// modalBank is a bank of damped resonant modes (tuned bandpass filters with
// individually decaying gain), the shared core behind both rings-modal
// (impulse-excited) and elements-exciter (continuously excited), grounded
// on internal/dsp's SVF/Biquad resonant-filter pattern repeated per mode.
type modalBank struct {
	modes    [modalModeCount]*dsp.SVF
	gains    [modalModeCount]float64
	decay    [modalModeCount]float64
	envLevel [modalModeCount]float64
}

func newModalBank(sampleRate float64) *modalBank {
	m := &modalBank{}
	for i := range m.modes {
		m.modes[i] = dsp.NewSVF(sampleRate)
		m.gains[i] = 1 / float64(i+1)
	}
	return m
}

// tune sets each mode's center frequency to an inharmonic ratio of the
// fundamental, stretched further by the structure parameter (0=base ratios,
// 1=most stretched, metallic).
func (m *modalBank) tune(fundamental, q, structure float64) {
	ratios := [modalModeCount]float64{1, 2.1, 3.4, 4.7, 6.2, 8.1}
	for i, r := range ratios {
		inharm := 1 + structure*float64(i)*0.3
		m.modes[i].SetParams(fundamental*r*inharm, q)
		m.decay[i] = 0.999 - float64(i)*0.002*(1+structure)
	}
}

func (m *modalBank) excite(level float64) {
	for i := range m.envLevel {
		m.envLevel[i] += level * m.gains[i]
	}
}

func (m *modalBank) process(in float64) float64 {
	var sum float64
	for i, mode := range m.modes {
		_, _, bp, _ := mode.Process(in + m.envLevel[i])
		sum += bp * m.gains[i]
		m.envLevel[i] *= m.decay[i]
	}
	return sum
}

func (m *modalBank) active() bool {
	var sum float64
	for _, v := range m.envLevel {
		sum += math.Abs(v)
	}
	return sum > 1e-4
}

type ringsVoice struct {
	active   bool
	note     int
	velocity float64
	bank     *modalBank
}

// RingsModal is the rings-modal engine: an impulse strikes a bank of tuned
// resonant modes on note-on and the struck energy decays naturally,
// matching Mutable Instruments Rings' modal-resonator lineage.
type RingsModal struct {
	sampleRate   float64
	sampleRateOK bool
	voices       []*ringsVoice

	q         float64
	structure float64
	cpu       float64
}

// NewRingsModal creates a rings-modal engine with the given polyphony.
func NewRingsModal(voiceCount int) *RingsModal {
	r := &RingsModal{q: 30, structure: 0.3}
	r.SetVoiceCount(voiceCount)
	return r
}

func (r *RingsModal) Initialize(sampleRate float64) error {
	r.sampleRate = sampleRate
	r.sampleRateOK = sampleRate > 0
	for _, v := range r.voices {
		v.bank = newModalBank(sampleRate)
	}
	return nil
}

func (r *RingsModal) SetVoiceCount(n int) {
	n = clampInt(n, 1, MaxVoicesPerSlot)
	for len(r.voices) < n {
		r.voices = append(r.voices, &ringsVoice{bank: newModalBank(r.sampleRate)})
	}
	if len(r.voices) > n {
		r.voices = r.voices[:n]
	}
}

func (r *RingsModal) NoteOn(n Note) {
	var v *ringsVoice
	for _, cand := range r.voices {
		if !cand.active {
			v = cand
			break
		}
	}
	if v == nil {
		v = r.voices[0]
	}
	v.active = true
	v.note = n.Number
	v.velocity = n.Velocity
	v.bank.tune(noteToFreq(n.Number), r.q, r.structure)
	v.bank.excite(n.Velocity)
}

func (r *RingsModal) NoteOff(note int) {
	// Modal resonators ring out past release; note-off does not cut them,
	// matching §4.3's "engines manage their own voice lifetime beyond
	// envelope release" for long-tail engines.
}

func (r *RingsModal) AllNotesOff() {
	for _, v := range r.voices {
		v.active = false
	}
}

func (r *RingsModal) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !r.sampleRateOK {
		return
	}
	active := 0
	for _, v := range r.voices {
		if !v.active {
			continue
		}
		if !v.bank.active() {
			v.active = false
			continue
		}
		active++
		for i := range out {
			out[i] += v.bank.process(0) * (0.3 + 0.7*v.velocity)
		}
	}
	r.cpu = float64(active) / float64(maxInt(len(r.voices), 1))
}

func (r *RingsModal) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamHarmonics:
		r.q = 5 + value*95
	case ParamMorph, ParamTimbre:
		r.structure = value
	}
}

func (r *RingsModal) HasParameter(id ParamID) bool {
	switch id {
	case ParamHarmonics, ParamMorph, ParamTimbre:
		return true
	}
	return false
}

func (r *RingsModal) GetParameter(id ParamID) float64 {
	switch id {
	case ParamHarmonics:
		return r.q
	case ParamMorph, ParamTimbre:
		return r.structure
	}
	return 0
}

func (r *RingsModal) ActiveVoices() int {
	n := 0
	for _, v := range r.voices {
		if v.active {
			n++
		}
	}
	return n
}

func (r *RingsModal) CPUEstimate() float64 { return r.cpu }
