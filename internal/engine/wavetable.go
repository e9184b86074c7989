package engine

import (
	"math"

	"github.com/gridsynth/ether-core/internal/envelope"
	"github.com/gridsynth/ether-core/internal/voicepool"
)

const (
	wavetableLen    = 512
	wavetableSlots  = 8
)

type wtVoice struct {
	active   bool
	note     int
	velocity float64
	phase    float64
	freqCyclesPerSample float64
	env      *envelope.Envelope
	allocID  uint64
}

// Wavetable is the wavetable engine: a bank of procedurally generated
// single-cycle tables read back with linear interpolation and crossfaded
// by the Morph macro, generalizing the teacher wavetable engine's
// phase/slot voice model from file-loaded tables to in-memory generated ones.
type Wavetable struct {
	sampleRate   float64
	sampleRateOK bool
	voices       []*wtVoice
	alloc        *voicepool.Allocator
	tables       [wavetableSlots][wavetableLen]float64
	infoScratch  []voicepool.VoiceInfo // reused by NoteOn; sized by SetVoiceCount

	morph     float64 // 0-1 position across the table bank
	harmonics float64 // Harmonics macro value; generateTables does not read it, so tables depend only on slot index
	attack, decay, sustain, release float64
	cpu float64
}

// NewWavetable creates a wavetable engine with the given polyphony.
func NewWavetable(voiceCount int) *Wavetable {
	w := &Wavetable{
		alloc:     voicepool.New(),
		harmonics: 0.5,
		attack:    0.004, decay: 0.15, sustain: 0.75, release: 0.25,
	}
	w.generateTables()
	w.SetVoiceCount(voiceCount)
	return w
}

// generateTables fills each slot with an additive waveform of increasing
// harmonic content, from a pure sine (slot 0) to a bright buzz (last slot).
func (w *Wavetable) generateTables() {
	for s := 0; s < wavetableSlots; s++ {
		brightness := float64(s) / float64(wavetableSlots-1)
		numHarmonics := 1 + int(brightness*24)
		for i := 0; i < wavetableLen; i++ {
			phase := float64(i) / float64(wavetableLen)
			var sum float64
			for h := 1; h <= numHarmonics; h++ {
				sum += math.Sin(2*math.Pi*phase*float64(h)) / float64(h)
			}
			w.tables[s][i] = sum
		}
		// normalize
		var peak float64
		for _, v := range w.tables[s] {
			if math.Abs(v) > peak {
				peak = math.Abs(v)
			}
		}
		if peak > 0 {
			for i := range w.tables[s] {
				w.tables[s][i] /= peak
			}
		}
	}
}

func (w *Wavetable) Initialize(sampleRate float64) error {
	w.sampleRate = sampleRate
	w.sampleRateOK = sampleRate > 0
	for _, v := range w.voices {
		v.env = envelope.New(sampleRate)
	}
	return nil
}

func (w *Wavetable) SetVoiceCount(n int) {
	n = clampInt(n, 1, MaxVoicesPerSlot)
	for len(w.voices) < n {
		w.voices = append(w.voices, &wtVoice{env: envelope.New(w.sampleRate)})
	}
	if len(w.voices) > n {
		w.voices = w.voices[:n]
	}
	w.infoScratch = w.infoScratch[:0]
	for range w.voices {
		w.infoScratch = append(w.infoScratch, voicepool.VoiceInfo{})
	}
}

func (w *Wavetable) NoteOn(n Note) {
	if len(w.voices) == 0 {
		return
	}
	for i, v := range w.voices {
		w.infoScratch[i] = voicepool.VoiceInfo{Active: v.active, Releasing: v.env.CurrentStage() == envelope.StageRelease, OutputLevel: v.env.Level(), AllocationID: v.allocID}
	}
	slot, _ := w.alloc.Allocate(w.infoScratch)
	v := w.voices[slot]
	v.active = true
	v.note = n.Number
	v.velocity = n.Velocity
	v.phase = 0
	v.allocID = w.alloc.NextAllocationID()
	if w.sampleRateOK {
		v.freqCyclesPerSample = noteToFreq(n.Number) / w.sampleRate
	}
	v.env.SetADSR(w.attack, w.decay, w.sustain, w.release)
	v.env.NoteOn(n.Velocity)
}

func (w *Wavetable) NoteOff(note int) {
	for _, v := range w.voices {
		if v.active && v.note == note {
			v.env.NoteOff()
		}
	}
}

func (w *Wavetable) AllNotesOff() {
	for _, v := range w.voices {
		v.env.NoteOff()
	}
}

// sampleTable reads the table bank at the given phase [0,1) and morph
// position, linearly interpolating between samples and crossfading between
// the two nearest table slots.
func (w *Wavetable) sampleTable(phase float64) float64 {
	pos := phase * wavetableLen
	i0 := int(pos) % wavetableLen
	i1 := (i0 + 1) % wavetableLen
	frac := pos - math.Floor(pos)

	slotPos := w.morph * float64(wavetableSlots-1)
	s0 := int(slotPos)
	s1 := s0 + 1
	if s1 >= wavetableSlots {
		s1 = wavetableSlots - 1
	}
	sFrac := slotPos - math.Floor(slotPos)

	lo := w.tables[s0][i0]*(1-frac) + w.tables[s0][i1]*frac
	hi := w.tables[s1][i0]*(1-frac) + w.tables[s1][i1]*frac
	return lo*(1-sFrac) + hi*sFrac
}

func (w *Wavetable) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !w.sampleRateOK {
		return
	}
	active := 0
	for _, v := range w.voices {
		if v.active && !v.env.Active() {
			v.active = false
		}
		if !v.active {
			continue
		}
		active++
		for i := range out {
			sample := w.sampleTable(v.phase)
			v.phase += v.freqCyclesPerSample
			if v.phase >= 1 {
				v.phase -= math.Floor(v.phase)
			}
			out[i] += sample * v.env.Process() * (0.3 + 0.7*v.velocity)
		}
	}
	w.cpu = float64(active) / float64(maxInt(len(w.voices), 1))
}

func (w *Wavetable) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamMorph:
		w.morph = value
	case ParamHarmonics:
		w.harmonics = value
		w.generateTables()
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

func (w *Wavetable) HasParameter(id ParamID) bool {
	switch id {
	case ParamMorph, ParamHarmonics, ParamAttack, ParamDecay, ParamSustain, ParamRelease:
		return true
	}
	return false
}

func (w *Wavetable) GetParameter(id ParamID) float64 {
	switch id {
	case ParamMorph:
		return w.morph
	case ParamHarmonics:
		return w.harmonics
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

func (w *Wavetable) ActiveVoices() int {
	n := 0
	for _, v := range w.voices {
		if v.active {
			n++
		}
	}
	return n
}

func (w *Wavetable) CPUEstimate() float64 { return w.cpu }
