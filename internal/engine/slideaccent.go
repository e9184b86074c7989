package engine

import (
	"github.com/gridsynth/ether-core/internal/dsp"
	"github.com/gridsynth/ether-core/internal/envelope"
	"github.com/gridsynth/ether-core/internal/osc"
)

// SlideAccentBass is the slide-accent-bass engine: a monophonic oscillator
// with glide between consecutive notes and accent-scaled VCA/VCF, in the
// idiom of the teacher's portamentoFrom/portamentoFrames/portamentoStep
// frame-counted glide, generalized from polyphonic voices to a single
// always-on voice (classic TB-303-style bass behavior).
type SlideAccentBass struct {
	sampleRate   float64
	sampleRateOK bool

	osc  *osc.Oscillator
	filt *dsp.SVF
	env  *envelope.Envelope

	note       int
	active     bool
	accented   bool
	lastNote   int
	haveLast   bool

	freq           float64
	glideFrom      float64
	glideFrames    int
	glideFramesLeft int
	glideStep      float64

	glideTimeMs float64
	cutoffHz    float64
	resonance   float64
	accentAmt   float64
	attack, decay, sustain, release float64
	cpu float64
}

// NewSlideAccentBass creates a slide-accent-bass engine.
func NewSlideAccentBass() *SlideAccentBass {
	s := &SlideAccentBass{
		glideTimeMs: 60,
		cutoffHz:    800,
		resonance:   4,
		accentAmt:   0.5,
		attack:      0.002, decay: 0.15, sustain: 0.3, release: 0.1,
		lastNote: -1,
	}
	return s
}

func (s *SlideAccentBass) Initialize(sampleRate float64) error {
	s.sampleRate = sampleRate
	s.sampleRateOK = sampleRate > 0
	s.osc = osc.New(sampleRate)
	s.osc.SetWaveform(osc.WaveSaw)
	s.filt = dsp.NewSVF(sampleRate)
	s.env = envelope.New(sampleRate)
	return nil
}

func (s *SlideAccentBass) SetVoiceCount(int) {} // monophonic by design

func (s *SlideAccentBass) NoteOn(n Note) {
	s.active = true
	s.note = n.Number
	s.accented = n.Velocity > 0.8
	targetFreq := noteToFreq(n.Number)

	glide := s.haveLast && s.glideTimeMs > 0
	if glide && s.sampleRateOK {
		s.glideFrom = s.freq
		s.glideFrames = int(s.glideTimeMs * s.sampleRate / 1000)
		if s.glideFrames < 1 {
			s.glideFrames = 1
		}
		s.glideFramesLeft = s.glideFrames
		s.glideStep = (targetFreq - s.glideFrom) / float64(s.glideFrames)
	} else {
		s.freq = targetFreq
		s.glideFramesLeft = 0
		s.osc.ResetPhase()
	}
	s.lastNote = n.Number
	s.haveLast = true

	s.env.SetADSR(s.attack, s.decay, s.sustain, s.release)
	s.env.NoteOn(n.Velocity)
}

func (s *SlideAccentBass) NoteOff(note int) {
	if note == s.note {
		s.env.NoteOff()
	}
}

func (s *SlideAccentBass) AllNotesOff() {
	s.env.NoteOff()
	s.haveLast = false
}

func (s *SlideAccentBass) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !s.sampleRateOK || !s.env.Active() {
		if !s.env.Active() {
			s.active = false
			s.cpu = 0
		}
		return
	}
	s.cpu = 1
	accentGain := 1.0
	cutoff := s.cutoffHz
	if s.accented {
		accentGain = 1 + s.accentAmt
		cutoff *= 1 + s.accentAmt
	}
	s.filt.SetParams(cutoff, s.resonance)
	for i := range out {
		if s.glideFramesLeft > 0 {
			s.freq += s.glideStep
			s.glideFramesLeft--
			if s.glideFramesLeft == 0 {
				s.freq = noteToFreq(s.note)
			}
		}
		s.osc.SetFrequency(s.freq)
		raw := s.osc.Process()
		lp, _, _, _ := s.filt.Process(raw)
		out[i] = lp * s.env.Process() * accentGain
	}
}

func (s *SlideAccentBass) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamTimbre, ParamCutoff:
		s.cutoffHz = 60 + value*3000
	case ParamResonance:
		s.resonance = 0.5 + value*19.5
	case ParamGlide:
		s.glideTimeMs = value * 300
	case ParamAccent:
		s.accentAmt = value
	case ParamAttack:
		s.attack = 0.001 + value*0.5
	case ParamDecay:
		s.decay = 0.001 + value*1
	case ParamSustain:
		s.sustain = value
	case ParamRelease:
		s.release = 0.001 + value*2
	}
}

func (s *SlideAccentBass) HasParameter(id ParamID) bool {
	switch id {
	case ParamTimbre, ParamCutoff, ParamResonance, ParamGlide, ParamAccent,
		ParamAttack, ParamDecay, ParamSustain, ParamRelease:
		return true
	}
	return false
}

func (s *SlideAccentBass) GetParameter(id ParamID) float64 {
	switch id {
	case ParamTimbre, ParamCutoff:
		return s.cutoffHz
	case ParamResonance:
		return s.resonance
	case ParamGlide:
		return s.glideTimeMs / 300
	case ParamAccent:
		return s.accentAmt
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

func (s *SlideAccentBass) ActiveVoices() int {
	if s.env.Active() {
		return 1
	}
	return 0
}

func (s *SlideAccentBass) CPUEstimate() float64 { return s.cpu }
