package osc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOscillatorSineStaysInRange(t *testing.T) {
	o := New(48000)
	o.SetFrequency(440)
	for i := 0; i < 48000; i++ {
		v := o.Process()
		require.LessOrEqual(t, math.Abs(v), 1.0001)
	}
}

func TestOscillatorSquareRespectsPulseWidth(t *testing.T) {
	o := New(48000)
	o.SetWaveform(WaveSquare)
	o.SetFrequency(100)
	o.SetPulseWidth(0.25)
	var highCount int
	const n = 480 // one period at 100Hz/48kHz
	for i := 0; i < n; i++ {
		if o.Process() > 0 {
			highCount++
		}
	}
	require.InDelta(t, n/4, highCount, 3)
}

func TestOscillatorPhaseWrapsAndResets(t *testing.T) {
	o := New(48000)
	o.SetFrequency(1000)
	for i := 0; i < 100; i++ {
		o.Process()
	}
	require.GreaterOrEqual(t, o.Phase(), 0.0)
	require.Less(t, o.Phase(), 1.0)
	o.ResetPhase()
	require.Equal(t, 0.0, o.Phase())
}

func TestOperatorEnvelopeGatesOutput(t *testing.T) {
	op := NewOperator(48000)
	op.SetEnvelope(0.001, 0.001, 0.5, 0.01)
	require.False(t, op.Active())
	_, scaled := op.Process(440, 0)
	require.Equal(t, 0.0, scaled)

	op.NoteOn(true)
	var last float64
	for i := 0; i < 1000; i++ {
		_, last = op.Process(440, 0)
	}
	require.NotEqual(t, 0.0, last)

	op.NoteOff()
	for i := 0; i < 48000; i++ {
		_, last = op.Process(440, 0)
	}
	require.False(t, op.Active())
}

func TestOperatorPhaseModulationShiftsOutput(t *testing.T) {
	a := NewOperator(48000)
	a.SetEnvelope(0.0001, 0.0001, 1, 0.01)
	a.NoteOn(true)
	b := NewOperator(48000)
	b.SetEnvelope(0.0001, 0.0001, 1, 0.01)
	b.NoteOn(true)

	rawA, _ := a.Process(440, 0)
	rawB, _ := b.Process(440, 0.25)
	require.NotEqual(t, rawA, rawB)
}
