package engine

import (
	"math"

	"github.com/gridsynth/ether-core/internal/dsp"
	"github.com/gridsynth/ether-core/internal/envelope"
	"github.com/gridsynth/ether-core/internal/osc"
	"github.com/gridsynth/ether-core/internal/voicepool"
)

type analogVoice struct {
	info voicepool.VoiceInfo
	note int
	osc  *osc.Oscillator
	env  *envelope.Envelope
	filt *dsp.SVF
	velocity float64
}

// Analog is the analog-virtual engine: a bank of VirtualAnalogOscillator
// voices with PWM, each through its own native resonant filter and ADSR,
// grounded on the teacher FM voice/envelope pattern generalized to a
// single non-FM oscillator per voice.
type Analog struct {
	sampleRate float64
	sampleRateOK bool
	voices     []*analogVoice
	alloc      *voicepool.Allocator
	infoScratch []voicepool.VoiceInfo // reused by NoteOn; sized by SetVoiceCount

	waveform osc.Waveform
	pulseWidth float64
	cutoffHz   float64
	resonance  float64
	attack, decay, sustain, release float64
	cpu        float64
}

// NewAnalog creates an analog-virtual engine with the given polyphony.
func NewAnalog(voiceCount int) *Analog {
	a := &Analog{
		alloc:      voicepool.New(),
		waveform:   osc.WaveSaw,
		pulseWidth: 0.5,
		cutoffHz:   2000,
		resonance:  0.707,
		attack:     0.005, decay: 0.1, sustain: 0.8, release: 0.3,
	}
	a.SetVoiceCount(voiceCount)
	return a
}

func (a *Analog) Initialize(sampleRate float64) error {
	a.sampleRate = sampleRate
	a.sampleRateOK = sampleRate > 0
	for _, v := range a.voices {
		v.osc = osc.New(sampleRate)
		v.env = envelope.New(sampleRate)
		v.filt = dsp.NewSVF(sampleRate)
	}
	return nil
}

func (a *Analog) SetVoiceCount(n int) {
	n = clampInt(n, 1, MaxVoicesPerSlot)
	for len(a.voices) < n {
		a.voices = append(a.voices, &analogVoice{osc: osc.New(a.sampleRate), env: envelope.New(a.sampleRate), filt: dsp.NewSVF(a.sampleRate)})
	}
	if len(a.voices) > n {
		a.voices = a.voices[:n]
	}
	a.infoScratch = a.infoScratch[:0]
	for range a.voices {
		a.infoScratch = append(a.infoScratch, voicepool.VoiceInfo{})
	}
}

func (a *Analog) NoteOn(n Note) {
	if len(a.voices) == 0 {
		return
	}
	for i, v := range a.voices {
		a.infoScratch[i] = voicepool.VoiceInfo{Active: v.env.Active(), Releasing: v.env.CurrentStage() == envelope.StageRelease, OutputLevel: v.env.Level(), AllocationID: v.info.AllocationID}
	}
	slot, _ := a.alloc.Allocate(a.infoScratch)
	v := a.voices[slot]
	v.note = n.Number
	v.velocity = n.Velocity
	v.info.AllocationID = a.alloc.NextAllocationID()
	v.osc.SetWaveform(a.waveform)
	v.osc.SetPulseWidth(a.pulseWidth)
	v.osc.SetFrequency(noteToFreq(n.Number))
	v.osc.ResetPhase()
	v.env.SetADSR(a.attack, a.decay, a.sustain, a.release)
	v.env.NoteOn(n.Velocity)
}

func (a *Analog) NoteOff(note int) {
	for _, v := range a.voices {
		if v.note == note && v.env.Active() {
			v.env.NoteOff()
		}
	}
}

func (a *Analog) AllNotesOff() {
	for _, v := range a.voices {
		v.env.NoteOff()
	}
}

func (a *Analog) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !a.sampleRateOK {
		return
	}
	active := 0
	for _, v := range a.voices {
		if !v.env.Active() {
			continue
		}
		active++
		v.filt.SetParams(a.cutoffHz, a.resonance)
		for i := range out {
			raw := v.osc.Process()
			env := v.env.Process()
			lp, _, _, _ := v.filt.Process(raw * env)
			out[i] += lp * (0.3 + 0.7*v.velocity)
		}
	}
	a.cpu = float64(active) / float64(maxInt(len(a.voices), 1))
}

func (a *Analog) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamTimbre, ParamCutoff:
		a.cutoffHz = 20 * pow2(value*9.2) // ~20Hz-12kHz exponential via pow2 helper
	case ParamResonance:
		a.resonance = 0.5 + value*9.5
	case ParamMorph:
		if value < 0.33 {
			a.waveform = osc.WaveSaw
		} else if value < 0.66 {
			a.waveform = osc.WaveSquare
		} else {
			a.waveform = osc.WaveTriangle
		}
	case ParamHarmonics:
		a.pulseWidth = 0.5 - value*0.45
	case ParamAttack:
		a.attack = 0.001 + value*2
	case ParamDecay:
		a.decay = 0.001 + value*2
	case ParamSustain:
		a.sustain = value
	case ParamRelease:
		a.release = 0.001 + value*5
	}
}

func (a *Analog) HasParameter(id ParamID) bool {
	switch id {
	case ParamTimbre, ParamCutoff, ParamResonance, ParamMorph, ParamHarmonics,
		ParamAttack, ParamDecay, ParamSustain, ParamRelease:
		return true
	}
	return false
}

func (a *Analog) GetParameter(id ParamID) float64 {
	switch id {
	case ParamTimbre, ParamCutoff:
		return a.cutoffHz
	case ParamResonance:
		return a.resonance
	case ParamAttack:
		return a.attack
	case ParamDecay:
		return a.decay
	case ParamSustain:
		return a.sustain
	case ParamRelease:
		return a.release
	}
	return 0
}

func (a *Analog) ActiveVoices() int {
	n := 0
	for _, v := range a.voices {
		if v.env.Active() {
			n++
		}
	}
	return n
}

func (a *Analog) CPUEstimate() float64 { return a.cpu }

func noteToFreq(note int) float64 {
	return 440 * math.Exp2(float64(note-69)/12)
}

func pow2(x float64) float64 { return math.Exp2(x) }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
