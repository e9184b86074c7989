package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireNoNaN(t *testing.T, out []float64) {
	for _, v := range out {
		require.False(t, math.IsNaN(v))
		require.False(t, math.IsInf(v, 0))
	}
}

func TestAnalogNoteLifecycle(t *testing.T) {
	e := NewAnalog(4)
	require.NoError(t, e.Initialize(48000))
	e.SetParameter(ParamTimbre, 0.5)
	e.NoteOn(Note{Number: 60, Velocity: 1})
	require.Equal(t, 1, e.ActiveVoices())

	out := make([]float64, 256)
	e.ProcessBlock(out)
	requireNoNaN(t, out)

	e.NoteOff(60)
	for i := 0; i < 500; i++ {
		e.ProcessBlock(out)
	}
	require.Equal(t, 0, e.ActiveVoices())
}

func TestAnalogStealsOldestWhenFull(t *testing.T) {
	e := NewAnalog(2)
	require.NoError(t, e.Initialize(48000))
	e.NoteOn(Note{Number: 60, Velocity: 1})
	e.NoteOn(Note{Number: 64, Velocity: 1})
	e.NoteOn(Note{Number: 67, Velocity: 1}) // steals
	require.LessOrEqual(t, e.ActiveVoices(), 2)
}

func TestFM4OpProducesBoundedOutput(t *testing.T) {
	e := NewFM4Op(4)
	require.NoError(t, e.Initialize(48000))
	e.SetParameter(ParamHarmonics, 0.8)
	e.NoteOn(Note{Number: 57, Velocity: 0.9})
	out := make([]float64, 512)
	for i := 0; i < 10; i++ {
		e.ProcessBlock(out)
	}
	requireNoNaN(t, out)
	for _, v := range out {
		require.LessOrEqual(t, math.Abs(v), 4.0)
	}
}

func TestWavetableMorphesBetweenSlots(t *testing.T) {
	e := NewWavetable(2)
	require.NoError(t, e.Initialize(48000))
	e.SetParameter(ParamMorph, 0)
	e.NoteOn(Note{Number: 69, Velocity: 1})
	out := make([]float64, 256)
	e.ProcessBlock(out)
	requireNoNaN(t, out)
}

func TestChordProducesMultipleTones(t *testing.T) {
	c := NewChord()
	require.NoError(t, c.Initialize(48000))
	c.SetParameter(ParamMorph, 0) // major
	c.NoteOn(Note{Number: 60, Velocity: 1})
	require.Greater(t, c.ActiveVoices(), 1)
	out := make([]float64, 256)
	c.ProcessBlock(out)
	requireNoNaN(t, out)
}

func TestDrumKitPadsAreIndependent(t *testing.T) {
	d := NewDrumKit()
	require.NoError(t, d.Initialize(48000))
	d.TriggerPad(PadKick, 1)
	require.Equal(t, 1, d.ActiveVoices())
	d.TriggerPad(PadSnare, 1)
	require.Equal(t, 2, d.ActiveVoices())
	out := make([]float64, 128)
	d.ProcessBlock(out)
	requireNoNaN(t, out)
}

func TestDrumKitChokeSilencesPad(t *testing.T) {
	d := NewDrumKit()
	require.NoError(t, d.Initialize(48000))
	d.TriggerPad(PadOpenHat, 1)
	require.Equal(t, 1, d.ActiveVoices())
	d.Choke(PadOpenHat)
	require.Equal(t, 0, d.ActiveVoices())
}

func TestSamplerKitPlaysBuffer(t *testing.T) {
	buf := make([]float64, 1000)
	for i := range buf {
		buf[i] = math.Sin(float64(i) * 0.1)
	}
	s := NewSamplerKit()
	require.NoError(t, s.Initialize(48000))
	s.SetPad(0, SamplerPad{Buffer: buf, BaseNote: 60, Gain: 1})
	s.TriggerPad(0, 1, 60)
	out := make([]float64, 10)
	s.ProcessBlock(out)
	requireNoNaN(t, out)
	require.Equal(t, 1, s.ActiveVoices())
}

func TestSlideAccentBassGlidesBetweenNotes(t *testing.T) {
	s := NewSlideAccentBass()
	require.NoError(t, s.Initialize(48000))
	s.SetParameter(ParamGlide, 0.5)
	s.NoteOn(Note{Number: 36, Velocity: 0.5})
	out := make([]float64, 64)
	s.ProcessBlock(out)
	s.NoteOn(Note{Number: 48, Velocity: 0.9})
	require.Greater(t, s.glideFramesLeft, 0)
	s.ProcessBlock(out)
	requireNoNaN(t, out)
}

func TestRingsModalRingsAfterImpulse(t *testing.T) {
	r := NewRingsModal(2)
	require.NoError(t, r.Initialize(48000))
	r.NoteOn(Note{Number: 60, Velocity: 1})
	out := make([]float64, 256)
	r.ProcessBlock(out)
	requireNoNaN(t, out)
	var energy float64
	for _, v := range out {
		energy += v * v
	}
	require.Greater(t, energy, 0.0)
}

func TestGranularSpawnsGrainsFromBuffer(t *testing.T) {
	buf := make([]float64, 4096)
	for i := range buf {
		buf[i] = math.Sin(float64(i) * 0.05)
	}
	g := NewGranular(buf)
	require.NoError(t, g.Initialize(48000))
	g.SetParameter(ParamHarmonics, 1) // max density
	g.NoteOn(Note{Number: 60, Velocity: 1})
	out := make([]float64, 4096)
	g.ProcessBlock(out)
	requireNoNaN(t, out)
	require.Greater(t, g.ActiveVoices(), 0)
}

func TestEveryEngineHasParameterIsConsistentWithGetSet(t *testing.T) {
	engines := []Engine{
		NewAnalog(1), NewFM4Op(1), NewWaveshaper(1), NewWavetable(1),
		NewHarmonics(1), NewFormant(1), NewTides(1), NewClassicFM(1),
	}
	for _, e := range engines {
		require.NoError(t, e.Initialize(48000))
		for id := ParamHarmonics; id < paramCount; id++ {
			if e.HasParameter(id) {
				e.SetParameter(id, 0.5)
				_ = e.GetParameter(id)
			}
		}
	}
}
