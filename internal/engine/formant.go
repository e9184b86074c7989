package engine

import (
	"github.com/gridsynth/ether-core/internal/dsp"
	"github.com/gridsynth/ether-core/internal/envelope"
	"github.com/gridsynth/ether-core/internal/osc"
)

// formantPair holds three formant center frequencies (f1-f3) approximating a vowel.
type formantPair struct{ f1, f2, f3 float64 }

// vowelTable holds a small set of vowel formant targets interpolated by the
// Morph macro, grounded on internal/dsp's resonant bandpass primitive driven
// three times in parallel.
var vowelTable = []formantPair{
	{f1: 800, f2: 1150, f3: 2900},  // "ah"
	{f1: 400, f2: 2000, f3: 2550},  // "ee"
	{f1: 350, f2: 800, f3: 2400},   // "oo"
	{f1: 600, f2: 1700, f3: 2600},  // "eh"
}

type formantVoice struct {
	active   bool
	note     int
	velocity float64
	osc      *osc.Oscillator
	bp1, bp2, bp3 *dsp.Biquad
	env      *envelope.Envelope
}

// Formant is the formant engine: a sawtooth source excitation run through
// three parallel resonant bandpass filters tracking a vowel position,
// crossfaded by the Morph macro across the vowel table.
type Formant struct {
	sampleRate   float64
	sampleRateOK bool
	voices       []*formantVoice

	vowelPos float64 // 0-1 across vowelTable
	q        float64
	attack, decay, sustain, release float64
	cpu float64
}

// NewFormant creates a formant engine with the given polyphony.
func NewFormant(voiceCount int) *Formant {
	f := &Formant{
		q:      10,
		attack: 0.01, decay: 0.2, sustain: 0.7, release: 0.3,
	}
	f.SetVoiceCount(voiceCount)
	return f
}

func (f *Formant) Initialize(sampleRate float64) error {
	f.sampleRate = sampleRate
	f.sampleRateOK = sampleRate > 0
	for _, v := range f.voices {
		v.osc = osc.New(sampleRate)
		v.bp1 = dsp.NewBiquad(sampleRate, dsp.BandPass, 800, f.q)
		v.bp2 = dsp.NewBiquad(sampleRate, dsp.BandPass, 1150, f.q)
		v.bp3 = dsp.NewBiquad(sampleRate, dsp.BandPass, 2900, f.q)
		v.env = envelope.New(sampleRate)
	}
	return nil
}

func (f *Formant) SetVoiceCount(n int) {
	n = clampInt(n, 1, MaxVoicesPerSlot)
	for len(f.voices) < n {
		f.voices = append(f.voices, &formantVoice{
			osc: osc.New(f.sampleRate),
			bp1: dsp.NewBiquad(f.sampleRate, dsp.BandPass, 800, f.q),
			bp2: dsp.NewBiquad(f.sampleRate, dsp.BandPass, 1150, f.q),
			bp3: dsp.NewBiquad(f.sampleRate, dsp.BandPass, 2900, f.q),
			env: envelope.New(f.sampleRate),
		})
	}
	if len(f.voices) > n {
		f.voices = f.voices[:n]
	}
}

func vowelAt(pos float64) formantPair {
	n := len(vowelTable)
	scaled := pos * float64(n-1)
	i0 := int(scaled)
	if i0 >= n-1 {
		return vowelTable[n-1]
	}
	frac := scaled - float64(i0)
	a, b := vowelTable[i0], vowelTable[i0+1]
	return formantPair{
		f1: a.f1 + (b.f1-a.f1)*frac,
		f2: a.f2 + (b.f2-a.f2)*frac,
		f3: a.f3 + (b.f3-a.f3)*frac,
	}
}

func (f *Formant) NoteOn(n Note) {
	var v *formantVoice
	for _, cand := range f.voices {
		if !cand.env.Active() {
			v = cand
			break
		}
	}
	if v == nil {
		v = f.voices[0]
		for _, cand := range f.voices {
			if cand.env.Level() < v.env.Level() {
				v = cand
			}
		}
	}
	v.active = true
	v.note = n.Number
	v.velocity = n.Velocity
	v.osc.SetWaveform(osc.WaveSaw)
	v.osc.SetFrequency(noteToFreq(n.Number))
	v.osc.ResetPhase()
	v.env.SetADSR(f.attack, f.decay, f.sustain, f.release)
	v.env.NoteOn(n.Velocity)
}

func (f *Formant) NoteOff(note int) {
	for _, v := range f.voices {
		if v.active && v.note == note {
			v.env.NoteOff()
		}
	}
}

func (f *Formant) AllNotesOff() {
	for _, v := range f.voices {
		v.env.NoteOff()
	}
}

func (f *Formant) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !f.sampleRateOK {
		return
	}
	vowel := vowelAt(f.vowelPos)
	active := 0
	for _, v := range f.voices {
		if v.active && !v.env.Active() {
			v.active = false
		}
		if !v.active {
			continue
		}
		active++
		v.bp1.SetParams(dsp.BandPass, vowel.f1, f.q)
		v.bp2.SetParams(dsp.BandPass, vowel.f2, f.q)
		v.bp3.SetParams(dsp.BandPass, vowel.f3, f.q)
		for i := range out {
			exc := v.osc.Process()
			formantSum := v.bp1.Process(exc)*1.0 + v.bp2.Process(exc)*0.6 + v.bp3.Process(exc)*0.3
			out[i] += formantSum * v.env.Process() * (0.3 + 0.7*v.velocity)
		}
	}
	f.cpu = float64(active) / float64(maxInt(len(f.voices), 1))
}

func (f *Formant) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamMorph, ParamTimbre:
		f.vowelPos = value
	case ParamHarmonics:
		f.q = 2 + value*28
	case ParamAttack:
		f.attack = 0.001 + value*2
	case ParamDecay:
		f.decay = 0.001 + value*2
	case ParamSustain:
		f.sustain = value
	case ParamRelease:
		f.release = 0.001 + value*5
	}
}

func (f *Formant) HasParameter(id ParamID) bool {
	switch id {
	case ParamMorph, ParamTimbre, ParamHarmonics, ParamAttack, ParamDecay, ParamSustain, ParamRelease:
		return true
	}
	return false
}

func (f *Formant) GetParameter(id ParamID) float64 {
	switch id {
	case ParamMorph, ParamTimbre:
		return f.vowelPos
	case ParamHarmonics:
		return f.q
	case ParamAttack:
		return f.attack
	case ParamDecay:
		return f.decay
	case ParamSustain:
		return f.sustain
	case ParamRelease:
		return f.release
	}
	return 0
}

func (f *Formant) ActiveVoices() int {
	n := 0
	for _, v := range f.voices {
		if v.active {
			n++
		}
	}
	return n
}

func (f *Formant) CPUEstimate() float64 { return f.cpu }
