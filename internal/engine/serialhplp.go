package engine

import (
	"math"

	"github.com/gridsynth/ether-core/internal/envelope"
	"github.com/gridsynth/ether-core/internal/osc"
)

// SerialHPLP is the serial-hplp engine: a monophonic dual-VA-oscillator
// voice through a serial HP->LP chain of one-pole (6dB/oct) stages with optional ring
// modulation between the oscillators, grounded on SerialHPLPEngine.h's H/T/M
// mapping (HARMONICS: HP cutoff+drive+ring amount; TIMBRE: detune+LP
// character; MORPH: HP/LP balance).
type SerialHPLP struct {
	sampleRate   float64
	sampleRateOK bool

	osc1, osc2 *osc.Oscillator
	hp, lp     *biquadState
	amp        *envelope.Envelope

	note     int
	velocity float64

	hpCutoffHz float64
	lpCutoffHz float64
	hpDrive    float64
	detuneSemi float64
	ringAmount float64
	balance    float64 // Morph: 0=serial HP->LP path, 1=LP-only path
	attack, decay, sustain, release float64
	cpu float64
}

// biquadState is a minimal one-pole (6dB/oct) filter reused for both the HP
// and LP stage of the serial chain; its HP output is the input minus the
// one-pole lowpass.
type biquadState struct {
	highpass bool
	sampleRate float64
	cutoff   float64
	z1, z2   float64
}

func newBiquadState(sampleRate float64, highpass bool, cutoff float64) *biquadState {
	return &biquadState{highpass: highpass, sampleRate: sampleRate, cutoff: cutoff}
}

func (b *biquadState) setCutoff(hz float64) { b.cutoff = hz }

func (b *biquadState) process(in float64) float64 {
	if b.sampleRate <= 0 {
		return in
	}
	rc := 1 / (2 * math.Pi * b.cutoff)
	dt := 1 / b.sampleRate
	alpha := dt / (rc + dt)
	b.z1 += alpha * (in - b.z1)
	lp := b.z1
	if b.highpass {
		return in - lp
	}
	return lp
}

// NewSerialHPLP creates a serial-hplp engine.
func NewSerialHPLP() *SerialHPLP {
	return &SerialHPLP{
		hpCutoffHz: 80, lpCutoffHz: 2000, hpDrive: 0.3,
		detuneSemi: 0.05, balance: 0.5,
		attack: 0.002, decay: 0.2, sustain: 0.6, release: 0.2,
	}
}

func (s *SerialHPLP) Initialize(sampleRate float64) error {
	s.sampleRate = sampleRate
	s.sampleRateOK = sampleRate > 0
	s.osc1 = osc.New(sampleRate)
	s.osc2 = osc.New(sampleRate)
	s.osc1.SetWaveform(osc.WaveSaw)
	s.osc2.SetWaveform(osc.WaveSaw)
	s.hp = newBiquadState(sampleRate, true, s.hpCutoffHz)
	s.lp = newBiquadState(sampleRate, false, s.lpCutoffHz)
	s.amp = envelope.New(sampleRate)
	return nil
}

func (s *SerialHPLP) SetVoiceCount(int) {} // monophonic by design

func (s *SerialHPLP) NoteOn(n Note) {
	s.note = n.Number
	s.velocity = n.Velocity
	freq := noteToFreq(n.Number)
	s.osc1.SetFrequency(freq)
	s.osc2.SetFrequency(freq * math.Exp2(s.detuneSemi/12))
	s.osc1.ResetPhase()
	s.osc2.ResetPhase()
	s.amp.SetADSR(s.attack, s.decay, s.sustain, s.release)
	s.amp.NoteOn(n.Velocity)
}

func (s *SerialHPLP) NoteOff(note int) {
	if note == s.note {
		s.amp.NoteOff()
	}
}

func (s *SerialHPLP) AllNotesOff() { s.amp.NoteOff() }

func driveShape(x, drive float64) float64 {
	return math.Tanh(x * (1 + drive*5))
}

func (s *SerialHPLP) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !s.sampleRateOK || !s.amp.Active() {
		s.cpu = 0
		return
	}
	s.cpu = 1
	s.hp.setCutoff(s.hpCutoffHz)
	s.lp.setCutoff(s.lpCutoffHz)
	for i := range out {
		a := s.osc1.Process()
		b := s.osc2.Process()
		var mixed float64
		if s.ringAmount > 0 {
			ring := a * b
			mixed = a*(1-s.ringAmount) + ring*s.ringAmount
		} else {
			mixed = (a + b) * 0.5
		}
		driven := driveShape(mixed, s.hpDrive)
		hpOut := s.hp.process(driven)
		lpOut := s.lp.process(driven)
		serial := s.lp.process(hpOut) // serial HP->LP
		blended := serial*(1-s.balance) + lpOut*s.balance
		out[i] = blended * s.amp.Process() * (0.3 + 0.7*s.velocity)
	}
}

func (s *SerialHPLP) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamHarmonics:
		s.hpCutoffHz = 20 + value*1980
		s.hpDrive = value
		s.ringAmount = value * 0.5
	case ParamTimbre:
		s.detuneSemi = value * 2
		s.lpCutoffHz = 200 + value*11800
	case ParamMorph:
		s.balance = value
	case ParamAttack:
		s.attack = 0.001 + value*2
	case ParamDecay:
		s.decay = 0.001 + value*2
	case ParamSustain:
		s.sustain = value
	case ParamRelease:
		s.release = 0.001 + value*5
	}
}

func (s *SerialHPLP) HasParameter(id ParamID) bool {
	switch id {
	case ParamHarmonics, ParamTimbre, ParamMorph, ParamAttack, ParamDecay, ParamSustain, ParamRelease:
		return true
	}
	return false
}

func (s *SerialHPLP) GetParameter(id ParamID) float64 {
	switch id {
	case ParamHarmonics:
		return s.hpDrive
	case ParamTimbre:
		return s.detuneSemi / 2
	case ParamMorph:
		return s.balance
	case ParamAttack:
		return s.attack
	case ParamDecay:
		return s.decay
	case ParamSustain:
		return s.sustain
	case ParamRelease:
		return s.release
	}
	return 0
}

func (s *SerialHPLP) ActiveVoices() int {
	if s.amp.Active() {
		return 1
	}
	return 0
}

func (s *SerialHPLP) CPUEstimate() float64 { return s.cpu }
