package engine

import (
	"math"

	"github.com/gridsynth/ether-core/internal/envelope"
	"github.com/gridsynth/ether-core/internal/osc"
)

type shaperVoice struct {
	active   bool
	note     int
	velocity float64
	osc      *osc.Oscillator
	env      *envelope.Envelope
}

// Waveshaper applies a tanh/fold nonlinearity to a single virtual-analog
// oscillator per voice, with drive driven by the Timbre macro and fold
// amount by Morph, grounded on internal/osc's oscillator plus a simple
// saturation stage in the teacher's distortion idiom.
type Waveshaper struct {
	sampleRate   float64
	sampleRateOK bool
	voices       []*shaperVoice

	drive float64
	fold  float64
	attack, decay, sustain, release float64
	cpu   float64
}

// NewWaveshaper creates a waveshaper engine with the given polyphony.
func NewWaveshaper(voiceCount int) *Waveshaper {
	w := &Waveshaper{
		drive:  1,
		attack: 0.003, decay: 0.2, sustain: 0.7, release: 0.3,
	}
	w.SetVoiceCount(voiceCount)
	return w
}

func (w *Waveshaper) Initialize(sampleRate float64) error {
	w.sampleRate = sampleRate
	w.sampleRateOK = sampleRate > 0
	for _, v := range w.voices {
		v.osc = osc.New(sampleRate)
		v.env = envelope.New(sampleRate)
	}
	return nil
}

func (w *Waveshaper) SetVoiceCount(n int) {
	n = clampInt(n, 1, MaxVoicesPerSlot)
	for len(w.voices) < n {
		w.voices = append(w.voices, &shaperVoice{osc: osc.New(w.sampleRate), env: envelope.New(w.sampleRate)})
	}
	if len(w.voices) > n {
		w.voices = w.voices[:n]
	}
}

func (w *Waveshaper) NoteOn(n Note) {
	var v *shaperVoice
	for _, cand := range w.voices {
		if !cand.env.Active() {
			v = cand
			break
		}
	}
	if v == nil {
		v = w.voices[0]
		for _, cand := range w.voices {
			if cand.env.Level() < v.env.Level() {
				v = cand
			}
		}
	}
	v.note = n.Number
	v.velocity = n.Velocity
	v.active = true
	v.osc.SetWaveform(osc.WaveSaw)
	v.osc.SetFrequency(noteToFreq(n.Number))
	v.osc.ResetPhase()
	v.env.SetADSR(w.attack, w.decay, w.sustain, w.release)
	v.env.NoteOn(n.Velocity)
}

func (w *Waveshaper) NoteOff(note int) {
	for _, v := range w.voices {
		if v.note == note && v.env.Active() {
			v.env.NoteOff()
		}
	}
}

func (w *Waveshaper) AllNotesOff() {
	for _, v := range w.voices {
		v.env.NoteOff()
	}
}

func (w *Waveshaper) shape(x float64) float64 {
	pre := x * w.drive
	driven := math.Tanh(pre)
	if w.fold > 0 {
		folded := pre
		for math.Abs(folded) > 1 {
			if folded > 1 {
				folded = 2 - folded
			} else if folded < -1 {
				folded = -2 - folded
			}
		}
		driven = driven*(1-w.fold) + folded*w.fold
	}
	return driven
}

func (w *Waveshaper) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !w.sampleRateOK {
		return
	}
	active := 0
	for _, v := range w.voices {
		if !v.env.Active() {
			continue
		}
		active++
		for i := range out {
			raw := v.osc.Process()
			out[i] += w.shape(raw) * v.env.Process() * (0.3 + 0.7*v.velocity)
		}
	}
	w.cpu = float64(active) / float64(maxInt(len(w.voices), 1))
}

func (w *Waveshaper) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamTimbre:
		w.drive = 1 + value*15
	case ParamMorph:
		w.fold = value
	case ParamAttack:
		w.attack = 0.001 + value*2
	case ParamDecay:
		w.decay = 0.001 + value*2
	case ParamSustain:
		w.sustain = value
	case ParamRelease:
		w.release = 0.001 + value*5
	}
}

func (w *Waveshaper) HasParameter(id ParamID) bool {
	switch id {
	case ParamTimbre, ParamMorph, ParamAttack, ParamDecay, ParamSustain, ParamRelease:
		return true
	}
	return false
}

func (w *Waveshaper) GetParameter(id ParamID) float64 {
	switch id {
	case ParamTimbre:
		return w.drive
	case ParamMorph:
		return w.fold
	case ParamAttack:
		return w.attack
	case ParamDecay:
		return w.decay
	case ParamSustain:
		return w.sustain
	case ParamRelease:
		return w.release
	}
	return 0
}

func (w *Waveshaper) ActiveVoices() int {
	n := 0
	for _, v := range w.voices {
		if v.env.Active() {
			n++
		}
	}
	return n
}

func (w *Waveshaper) CPUEstimate() float64 { return w.cpu }
