package engine

type elementsVoice struct {
	active   bool
	note     int
	velocity float64
	bank     *modalBank
	noise    *noiseLFSR
	bowLevel float64
}

// Elements is the elements-exciter engine: a continuous noise/bow exciter
// feeding the same modal-bank core as rings-modal, approximating Mutable
// Instruments Elements' sustained excitation rather than rings' single
// impulse strike, so notes sustain for as long as they're held.
type Elements struct {
	sampleRate   float64
	sampleRateOK bool
	voices       []*elementsVoice

	q         float64
	structure float64
	brightness float64 // Harmonics macro: scales the exciter level (no filter is applied)
	cpu       float64
}

// NewElements creates an elements-exciter engine with the given polyphony.
func NewElements(voiceCount int) *Elements {
	e := &Elements{q: 40, structure: 0.4, brightness: 0.5}
	e.SetVoiceCount(voiceCount)
	return e
}

func (e *Elements) Initialize(sampleRate float64) error {
	e.sampleRate = sampleRate
	e.sampleRateOK = sampleRate > 0
	for i, v := range e.voices {
		v.bank = newModalBank(sampleRate)
		v.noise = newNoiseLFSR(uint32(0xBEEF + i*17))
	}
	return nil
}

func (e *Elements) SetVoiceCount(n int) {
	n = clampInt(n, 1, MaxVoicesPerSlot)
	for len(e.voices) < n {
		idx := len(e.voices)
		e.voices = append(e.voices, &elementsVoice{bank: newModalBank(e.sampleRate), noise: newNoiseLFSR(uint32(0xBEEF + idx*17))})
	}
	if len(e.voices) > n {
		e.voices = e.voices[:n]
	}
}

func (e *Elements) NoteOn(n Note) {
	var v *elementsVoice
	for _, cand := range e.voices {
		if !cand.active {
			v = cand
			break
		}
	}
	if v == nil {
		v = e.voices[0]
	}
	v.active = true
	v.note = n.Number
	v.velocity = n.Velocity
	v.bowLevel = n.Velocity
	v.bank.tune(noteToFreq(n.Number), e.q, e.structure)
}

func (e *Elements) NoteOff(note int) {
	for _, v := range e.voices {
		if v.active && v.note == note {
			v.bowLevel = 0
		}
	}
}

func (e *Elements) AllNotesOff() {
	for _, v := range e.voices {
		v.bowLevel = 0
	}
}

func (e *Elements) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !e.sampleRateOK {
		return
	}
	active := 0
	for _, v := range e.voices {
		if !v.active {
			continue
		}
		if v.bowLevel <= 0 && !v.bank.active() {
			v.active = false
			continue
		}
		active++
		for i := range out {
			exc := v.noise.next() * v.bowLevel * (0.3 + e.brightness*0.7)
			out[i] += v.bank.process(exc) * (0.3 + 0.7*v.velocity)
		}
	}
	e.cpu = float64(active) / float64(maxInt(len(e.voices), 1))
}

func (e *Elements) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamHarmonics:
		e.brightness = value
	case ParamTimbre:
		e.q = 5 + value*95
	case ParamMorph:
		e.structure = value
	}
}

func (e *Elements) HasParameter(id ParamID) bool {
	switch id {
	case ParamHarmonics, ParamTimbre, ParamMorph:
		return true
	}
	return false
}

func (e *Elements) GetParameter(id ParamID) float64 {
	switch id {
	case ParamHarmonics:
		return e.brightness
	case ParamTimbre:
		return e.q
	case ParamMorph:
		return e.structure
	}
	return 0
}

func (e *Elements) ActiveVoices() int {
	n := 0
	for _, v := range e.voices {
		if v.active {
			n++
		}
	}
	return n
}

func (e *Elements) CPUEstimate() float64 { return e.cpu }
