package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBiquadLowPassAttenuatesHighFrequency(t *testing.T) {
	sr := 48000.0
	b := NewBiquad(sr, LowPass, 500, 0.707)
	var lastRMS, firstRMS float64
	// settle
	for i := 0; i < 2000; i++ {
		b.Process(math.Sin(2 * math.Pi * 10000 * float64(i) / sr))
	}
	for i := 0; i < 2000; i++ {
		out := b.Process(math.Sin(2 * math.Pi * 10000 * float64(2000+i) / sr))
		lastRMS += out * out
	}
	b2 := NewBiquad(sr, LowPass, 500, 0.707)
	for i := 0; i < 2000; i++ {
		out := b2.Process(math.Sin(2 * math.Pi * 200 * float64(i) / sr))
		firstRMS += out * out
	}
	require.Less(t, lastRMS, firstRMS)
}

func TestBiquadNeverProducesNaN(t *testing.T) {
	b := NewBiquad(48000, LowPass, 1000, 5)
	for i := 0; i < 1000; i++ {
		out := b.Process(math.NaN())
		require.False(t, math.IsNaN(out))
		require.False(t, math.IsInf(out, 0))
	}
}

func TestSVFProducesAllTaps(t *testing.T) {
	s := NewSVF(48000)
	s.SetParams(1000, 2)
	for i := 0; i < 100; i++ {
		lp, hp, bp, notch := s.Process(1)
		require.False(t, math.IsNaN(lp) || math.IsNaN(hp) || math.IsNaN(bp) || math.IsNaN(notch))
	}
}

func TestDCBlockerRemovesOffset(t *testing.T) {
	d := NewDCBlocker(0.995)
	var out float64
	for i := 0; i < 10000; i++ {
		out = d.Process(0.5)
	}
	require.Less(t, math.Abs(out), 0.01)
}

func TestOversamplerPassesDCThrough(t *testing.T) {
	o := NewOversampler(2)
	identity := func(v float64) float64 { return v }
	var out float64
	for i := 0; i < 200; i++ {
		out = o.Process(0.3, identity)
	}
	require.InDelta(t, 0.3, out, 0.05)
}

func TestSanitizeClearsNaNAndInf(t *testing.T) {
	require.Equal(t, 0.0, Sanitize(math.NaN()))
	require.Equal(t, 0.0, Sanitize(math.Inf(1)))
	require.Equal(t, 1.5, Sanitize(1.5))
}
