package postchain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainProducesBoundedStereoOutput(t *testing.T) {
	c := New(48000)
	c.NoteOn(0.8)
	for i := 0; i < 2000; i++ {
		l, r := c.ProcessSample(math.Sin(float64(i)*0.1), true)
		require.False(t, math.IsNaN(l))
		require.False(t, math.IsNaN(r))
		require.LessOrEqual(t, math.Abs(l), 1.5)
		require.LessOrEqual(t, math.Abs(r), 1.5)
	}
}

func TestChainPanSplitsEnergyAcrossChannels(t *testing.T) {
	c := New(48000)
	c.NoteOn(1)
	for i := 0; i < 200; i++ { // let the VCA attack settle
		c.ProcessSample(1, true)
	}
	c.SetPan(-1)
	var l, r float64
	for i := 0; i < 3000; i++ {
		l, r = c.ProcessSample(1, true)
	}
	require.Greater(t, math.Abs(l), math.Abs(r))

	c.SetPan(1)
	for i := 0; i < 3000; i++ {
		l, r = c.ProcessSample(1, true)
	}
	require.Greater(t, math.Abs(r), math.Abs(l))
}

func TestChainHoldsOffAfterSilence(t *testing.T) {
	c := New(48000)
	c.NoteOn(1)
	c.NoteOff()
	// drain the VCA release
	for i := 0; i < 48000; i++ {
		c.ProcessSample(0, false)
	}
	require.False(t, c.Active())
	l, r := c.ProcessSample(0, false)
	require.Equal(t, 0.0, l)
	require.Equal(t, 0.0, r)
}

func TestSoftClipIsBoundedAndUnityAtSmallSignals(t *testing.T) {
	small := softClip(0.01, 1)
	require.InDelta(t, 0.01, small, 0.001)

	large := softClip(10, 1)
	require.LessOrEqual(t, math.Abs(large), 1.0)
}

func TestNativeFilterBypassesLPFStage(t *testing.T) {
	c := New(48000)
	c.SetNativeFilter(true)
	c.NoteOn(1)
	c.SetLPF(0.3)
	require.InDelta(t, 0.3, c.NativeCutoffValue(), 0.001)
	l, r := c.ProcessSample(0.5, true)
	require.False(t, math.IsNaN(l))
	require.False(t, math.IsNaN(r))
}
