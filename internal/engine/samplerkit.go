package engine

import "math"

const samplerPadCount = 16

// SamplerPad holds one pad's in-memory sample data and playback settings.
// Buffers are supplied by the caller; no file I/O happens in this package
// (§1 non-goal).
type SamplerPad struct {
	Buffer     []float64
	LoopStart  int
	LoopEnd    int // 0 or >= len(Buffer) means no loop (one-shot)
	BaseNote   int
	Gain       float64
}

type samplerVoice struct {
	active   bool
	pad      int
	pos      float64
	step     float64
	velocity float64
}

// SamplerKit is the sampler-kit engine: per-pad playback of caller-supplied
// in-memory buffers with pitch, gain, and loop-point support, parallel to
// DrumKit but for sampled rather than synthesized material.
type SamplerKit struct {
	sampleRate   float64
	sampleRateOK bool
	pads         [samplerPadCount]SamplerPad
	voices       [samplerPadCount]*samplerVoice
	cpu          float64
}

// NewSamplerKit creates a sampler-kit engine with empty pads; load pad data
// with SetPad.
func NewSamplerKit() *SamplerKit {
	s := &SamplerKit{}
	for i := range s.voices {
		s.voices[i] = &samplerVoice{pad: i}
		s.pads[i].Gain = 1
		s.pads[i].BaseNote = 60
	}
	return s
}

// SetPad installs in-memory sample data for one pad.
func (s *SamplerKit) SetPad(index int, pad SamplerPad) {
	if index < 0 || index >= samplerPadCount {
		return
	}
	if pad.Gain == 0 {
		pad.Gain = 1
	}
	s.pads[index] = pad
}

func (s *SamplerKit) Initialize(sampleRate float64) error {
	s.sampleRate = sampleRate
	s.sampleRateOK = sampleRate > 0
	return nil
}

func (s *SamplerKit) SetVoiceCount(int) {} // one voice per pad, fixed

func (s *SamplerKit) NoteOn(n Note) {
	s.TriggerPad(n.Number%samplerPadCount, n.Velocity, n.Number)
}

// TriggerPad starts playback of pad at the given velocity; note, if
// nonzero-based, retunes playback speed relative to the pad's BaseNote.
func (s *SamplerKit) TriggerPad(pad int, velocity float64, note int) {
	if pad < 0 || pad >= samplerPadCount || len(s.pads[pad].Buffer) == 0 {
		return
	}
	v := s.voices[pad]
	v.active = true
	v.pos = 0
	v.velocity = velocity
	v.step = math.Exp2(float64(note-s.pads[pad].BaseNote) / 12)
}

func (s *SamplerKit) NoteOff(note int) {} // one-shot/loop playback; release via Choke

// Choke stops pad playback immediately.
func (s *SamplerKit) Choke(pad int) {
	if pad < 0 || pad >= samplerPadCount {
		return
	}
	s.voices[pad].active = false
}

func (s *SamplerKit) AllNotesOff() {
	for _, v := range s.voices {
		v.active = false
	}
}

func (s *SamplerKit) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !s.sampleRateOK {
		return
	}
	active := 0
	for pi, v := range s.voices {
		if !v.active {
			continue
		}
		pad := &s.pads[pi]
		if len(pad.Buffer) == 0 {
			v.active = false
			continue
		}
		loopEnd := pad.LoopEnd
		if loopEnd <= 0 || loopEnd > len(pad.Buffer) {
			loopEnd = len(pad.Buffer)
		}
		active++
		for i := range out {
			idx := int(v.pos)
			if idx >= loopEnd {
				if pad.LoopEnd > 0 && pad.LoopEnd < len(pad.Buffer) && pad.LoopStart < loopEnd {
					v.pos = float64(pad.LoopStart)
					idx = pad.LoopStart
				} else {
					v.active = false
					break
				}
			}
			out[i] += pad.Buffer[idx] * pad.Gain * (0.3 + 0.7*v.velocity)
			v.pos += v.step
		}
	}
	s.cpu = float64(active) / float64(samplerPadCount)
}

func (s *SamplerKit) SetParameter(id ParamID, value float64) {} // per-pad gain/pitch set via SetPad, not macros

func (s *SamplerKit) HasParameter(id ParamID) bool { return false }

func (s *SamplerKit) GetParameter(id ParamID) float64 { return 0 }

func (s *SamplerKit) ActiveVoices() int {
	n := 0
	for _, v := range s.voices {
		if v.active {
			n++
		}
	}
	return n
}

func (s *SamplerKit) CPUEstimate() float64 { return s.cpu }
