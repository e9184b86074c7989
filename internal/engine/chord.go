package engine

import (
	"github.com/gridsynth/ether-core/internal/envelope"
	"github.com/gridsynth/ether-core/internal/osc"
)

// ChordType selects an interval stack from the chord table, ported from
// EnhancedChordSystem.h's chord family enumeration (trimmed to the set that
// fits a single-slot groovebox voice, rather than its 5-engine arranger).
type ChordType int

const (
	ChordMajor ChordType = iota
	ChordMinor
	ChordMajor7
	ChordMinor7
	ChordDominant7
	ChordSus4
	ChordDiminished
	ChordAugmented
	chordTypeCount
)

// chordIntervals lists semitone offsets from the root for each chord type.
var chordIntervals = map[ChordType][]int{
	ChordMajor:      {0, 4, 7},
	ChordMinor:      {0, 3, 7},
	ChordMajor7:     {0, 4, 7, 11},
	ChordMinor7:     {0, 3, 7, 10},
	ChordDominant7:  {0, 4, 7, 10},
	ChordSus4:       {0, 5, 7},
	ChordDiminished: {0, 3, 6},
	ChordAugmented:  {0, 4, 8},
}

const chordMaxVoices = 5

type chordTone struct {
	osc   *osc.Oscillator
	env   *envelope.Envelope
	level float64
}

// Chord is the chord engine: one virtual-analog voice per interval in the
// selected chord type, spread across a fixed level/role taper, grounded on
// EnhancedChordSystem.h's chord table and voice-role leveling.
type Chord struct {
	sampleRate   float64
	sampleRateOK bool
	tones        [chordMaxVoices]*chordTone
	active       bool
	rootNote     int
	velocity     float64

	chordType ChordType
	spread    float64 // 0-1, widens octave doubling on upper voices
	attack, decay, sustain, release float64
	cpu float64
}

// NewChord creates a chord engine.
func NewChord() *Chord {
	c := &Chord{
		chordType: ChordMajor,
		spread:    0.2,
		attack:    0.008, decay: 0.2, sustain: 0.8, release: 0.4,
	}
	for i := range c.tones {
		c.tones[i] = &chordTone{level: 1}
	}
	return c
}

func (c *Chord) Initialize(sampleRate float64) error {
	c.sampleRate = sampleRate
	c.sampleRateOK = sampleRate > 0
	for _, t := range c.tones {
		t.osc = osc.New(sampleRate)
		t.env = envelope.New(sampleRate)
	}
	return nil
}

func (c *Chord) SetVoiceCount(int) {} // chord voice count is fixed by chord type, not externally configurable

func (c *Chord) NoteOn(n Note) {
	c.active = true
	c.rootNote = n.Number
	c.velocity = n.Velocity
	intervals := chordIntervals[c.chordType]
	for i, t := range c.tones {
		t.env.SetADSR(c.attack, c.decay, c.sustain, c.release)
		if i >= len(intervals) {
			t.level = 0
			continue
		}
		octaveDouble := 0
		if i >= 3 {
			octaveDouble = 12
		}
		note := n.Number + intervals[i] + int(float64(octaveDouble)*c.spread)
		t.level = 1 - float64(i)*0.12
		t.osc.SetWaveform(osc.WaveSaw)
		t.osc.SetFrequency(noteToFreq(note))
		t.osc.ResetPhase()
		t.env.NoteOn(n.Velocity)
	}
}

func (c *Chord) NoteOff(note int) {
	if note != c.rootNote {
		return
	}
	for _, t := range c.tones {
		t.env.NoteOff()
	}
}

func (c *Chord) AllNotesOff() {
	for _, t := range c.tones {
		t.env.NoteOff()
	}
}

func (c *Chord) ProcessBlock(out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !c.sampleRateOK || !c.active {
		return
	}
	anyActive := false
	for _, t := range c.tones {
		if !t.env.Active() || t.level <= 0 {
			continue
		}
		anyActive = true
		for i := range out {
			out[i] += t.osc.Process() * t.env.Process() * t.level * (0.3 + 0.7*c.velocity)
		}
	}
	if !anyActive {
		c.active = false
		c.cpu = 0
	} else {
		c.cpu = 1
	}
}

func (c *Chord) SetParameter(id ParamID, value float64) {
	value = clamp(value, 0, 1)
	switch id {
	case ParamMorph:
		c.chordType = ChordType(int(value * float64(chordTypeCount-1)))
	case ParamHarmonics:
		c.spread = value
	case ParamAttack:
		c.attack = 0.001 + value*2
	case ParamDecay:
		c.decay = 0.001 + value*2
	case ParamSustain:
		c.sustain = value
	case ParamRelease:
		c.release = 0.001 + value*5
	}
}

func (c *Chord) HasParameter(id ParamID) bool {
	switch id {
	case ParamMorph, ParamHarmonics, ParamAttack, ParamDecay, ParamSustain, ParamRelease:
		return true
	}
	return false
}

func (c *Chord) GetParameter(id ParamID) float64 {
	switch id {
	case ParamHarmonics:
		return c.spread
	case ParamAttack:
		return c.attack
	case ParamDecay:
		return c.decay
	case ParamSustain:
		return c.sustain
	case ParamRelease:
		return c.release
	}
	return 0
}

func (c *Chord) ActiveVoices() int {
	n := 0
	for _, t := range c.tones {
		if t.env.Active() {
			n++
		}
	}
	return n
}

func (c *Chord) CPUEstimate() float64 { return c.cpu }
