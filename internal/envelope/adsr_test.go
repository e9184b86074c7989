package envelope

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeReachesSustainThenIdleAfterRelease(t *testing.T) {
	e := New(48000)
	e.SetADSR(0.001, 0.001, 0.5, 0.001)
	e.NoteOn(1)
	require.True(t, e.Active())

	var last float64
	for i := 0; i < 48000; i++ {
		last = e.Process()
	}
	require.InDelta(t, 0.5, last, 0.05)
	require.Equal(t, StageSustain, e.CurrentStage())

	e.NoteOff()
	require.Equal(t, StageRelease, e.CurrentStage())
	for i := 0; i < 48000; i++ {
		last = e.Process()
	}
	require.False(t, e.Active())
	require.Equal(t, 0.0, last)
}

func TestEnvelopeVelocityScalesOutput(t *testing.T) {
	quiet := New(48000)
	quiet.SetADSR(0.001, 0.001, 1, 0.01)
	quiet.NoteOn(0.1)

	loud := New(48000)
	loud.SetADSR(0.001, 0.001, 1, 0.01)
	loud.NoteOn(1.0)

	var q, l float64
	for i := 0; i < 1000; i++ {
		q = quiet.Process()
		l = loud.Process()
	}
	require.Less(t, q, l)
}

func TestEnvelopeDepthScalesOutput(t *testing.T) {
	e := New(48000)
	e.SetADSR(0.0001, 0.0001, 1, 0.01)
	e.SetDepth(0.25)
	e.NoteOn(1)
	var last float64
	for i := 0; i < 1000; i++ {
		last = e.Process()
	}
	require.LessOrEqual(t, last, 0.25+1e-6)
}

func TestEnvelopeIdleProducesZero(t *testing.T) {
	e := New(48000)
	require.Equal(t, 0.0, e.Process())
	require.False(t, e.Active())
}
