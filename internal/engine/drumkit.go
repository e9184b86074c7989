package engine

import (
	"github.com/gridsynth/ether-core/internal/dsp"
	"github.com/gridsynth/ether-core/internal/envelope"
	"github.com/gridsynth/ether-core/internal/osc"
)

// DrumPad identifies one of the fixed drum-kit voice recipes.
type DrumPad int

const (
	PadKick DrumPad = iota
	PadSnare
	PadClosedHat
	PadOpenHat
	PadClap
	PadTom
	drumPadCount
)

type drumVoice struct {
	active bool
	pad    DrumPad
	osc    *osc.Oscillator
	noise  *noiseLFSR
	pitchEnv *envelope.Envelope
	ampEnv   *envelope.Envelope
	hp       *dsp.Biquad
	velocity float64
}

// DrumKit is the drum-kit engine: one fixed synthesis recipe per pad —
// pitch-enveloped sine for kick, noise+body tone for snare/clap, filtered
// noise bursts for hats, tuned pitch-enveloped sine for toms — each an
// oscillator+noise+envelope combination rather than a shared voice model,
// mirroring how drum machines dedicate distinct circuits per drum.
type DrumKit struct {
	sampleRate   float64
	sampleRateOK bool
	voices       [drumPadCount]*drumVoice

	decayScale float64 // Harmonics macro: overall decay length scale
	toneAmt    float64 // Timbre macro: noise/tone balance for snare/clap
	cpu        float64
}

// NewDrumKit creates a drum-kit engine with one voice per pad.
func NewDrumKit() *DrumKit {
	d := &DrumKit{decayScale: 0.5, toneAmt: 0.5}
	for i := range d.voices {
		d.voices[i] = &drumVoice{pad: DrumPad(i)}
	}
	return d
}

func (d *DrumKit) Initialize(sampleRate float64) error {
	d.sampleRate = sampleRate
	d.sampleRateOK = sampleRate > 0
	for i, v := range d.voices {
		v.osc = osc.New(sampleRate)
		v.noise = newNoiseLFSR(uint32(0x1234 + i*771))
		v.pitchEnv = envelope.New(sampleRate)
		v.ampEnv = envelope.New(sampleRate)
		v.hp = dsp.NewBiquad(sampleRate, dsp.HighPass, 2000, 0.707)
	}
	return nil
}

func (d *DrumKit) SetVoiceCount(int) {} // one voice per pad, fixed

// NoteOn maps note.Number % drumPadCount to a pad, so a pad can also be
// triggered directly as DrumKit.TriggerPad.
func (d *DrumKit) NoteOn(n Note) {
	d.TriggerPad(DrumPad(n.Number%int(drumPadCount)), n.Velocity)
}

// TriggerPad fires one drum voice directly, used by the sequencer's
// drum-lane bitmask trigger path.
func (d *DrumKit) TriggerPad(pad DrumPad, velocity float64) {
	if pad < 0 || int(pad) >= len(d.voices) {
		return
	}
	v := d.voices[pad]
	v.active = true
	v.velocity = velocity
	switch pad {
	case PadKick:
		v.osc.SetWaveform(osc.WaveSine)
		v.osc.SetFrequency(150)
		v.osc.ResetPhase()
		v.pitchEnv.SetADSR(0.0005, 0.08*(0.5+d.decayScale), 0, 0.01)
		v.pitchEnv.NoteOn(1)
		v.ampEnv.SetADSR(0.0005, 0.3*(0.5+d.decayScale), 0, 0.05)
		v.ampEnv.NoteOn(velocity)
	case PadSnare, PadClap:
		v.ampEnv.SetADSR(0.0005, 0.15*(0.5+d.decayScale), 0, 0.03)
		v.ampEnv.NoteOn(velocity)
		v.osc.SetWaveform(osc.WaveTriangle)
		v.osc.SetFrequency(200)
		v.osc.ResetPhase()
	case PadClosedHat:
		v.ampEnv.SetADSR(0.0002, 0.04*(0.5+d.decayScale), 0, 0.01)
		v.ampEnv.NoteOn(velocity)
	case PadOpenHat:
		v.ampEnv.SetADSR(0.0002, 0.35*(0.5+d.decayScale), 0, 0.05)
		v.ampEnv.NoteOn(velocity)
	case PadTom:
		v.osc.SetWaveform(osc.WaveSine)
		v.osc.SetFrequency(110)
		v.osc.ResetPhase()
		v.pitchEnv.SetADSR(0.001, 0.1, 0, 0.02)
		v.pitchEnv.NoteOn(1)
		v.ampEnv.SetADSR(0.0005, 0.25*(0.5+d.decayScale), 0, 0.05)
		v.ampEnv.NoteOn(velocity)
	}
}

// Choke immediately silences pad (used by the sequencer's closed/pedal-hat
// choke policy to cut an open hat).
func (d *DrumKit) Choke(pad DrumPad) {
	if pad < 0 || int(pad) >= len(d.voices) {
		return
	}
	v := d.voices[pad]
	v.ampEnv.Reset(0)
	v.active = false
}

func (d *DrumKit) NoteOff(note int) {} // drum voices self-release, note-off is a no-op

func (d *DrumKit) AllNotesOff() {
	for _, v := range d.voices {
		v.ampEnv.Reset(0)
		v.active = false
	}
}

func (d *DrumKit) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !d.sampleRateOK {
		return
	}
	active := 0
	for _, v := range d.voices {
		if v.active && !v.ampEnv.Active() {
			v.active = false
		}
		if !v.active {
			continue
		}
		active++
		for i := range out {
			var raw float64
			switch v.pad {
			case PadKick, PadTom:
				pitchDrop := v.pitchEnv.Process()
				v.osc.SetFrequency(freqForPad(v.pad) + pitchDrop*80)
				raw = v.osc.Process()
			case PadSnare, PadClap:
				tone := v.osc.Process()
				noise := v.noise.next()
				raw = tone*d.toneAmt + noise*(1-d.toneAmt)
			case PadClosedHat, PadOpenHat:
				raw = d.hpFiltered(v)
			}
			out[i] += raw * v.ampEnv.Process() * (0.3 + 0.7*v.velocity)
		}
	}
	d.cpu = float64(active) / float64(drumPadCount)
}

func (d *DrumKit) hpFiltered(v *drumVoice) float64 {
	return v.hp.Process(v.noise.next())
}

func freqForPad(pad DrumPad) float64 {
	switch pad {
	case PadKick:
		return 60
	case PadTom:
		return 110
	}
	return 150
}

func (d *DrumKit) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamHarmonics:
		d.decayScale = value
	case ParamTimbre:
		d.toneAmt = value
	}
}

func (d *DrumKit) HasParameter(id ParamID) bool {
	switch id {
	case ParamHarmonics, ParamTimbre:
		return true
	}
	return false
}

func (d *DrumKit) GetParameter(id ParamID) float64 {
	switch id {
	case ParamHarmonics:
		return d.decayScale
	case ParamTimbre:
		return d.toneAmt
	}
	return 0
}

func (d *DrumKit) ActiveVoices() int {
	n := 0
	for _, v := range d.voices {
		if v.active {
			n++
		}
	}
	return n
}

func (d *DrumKit) CPUEstimate() float64 { return d.cpu }
