package param

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSmootherConvergesToTarget(t *testing.T) {
	s := New(48000, DefaultConfig())
	s.SetValue(0)
	s.SetTarget(0.8)
	var last float64
	for i := 0; i < 48000; i++ {
		last = s.Process()
	}
	require.InDelta(t, 0.8, last, 1e-3)
}

func TestSmootherInvalidSampleRateIsPassthrough(t *testing.T) {
	s := New(0, DefaultConfig())
	s.SetTarget(0.42)
	require.Equal(t, 0.42, s.Process())
}

func TestSmootherInstantModeSnaps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothType = SmoothInstant
	s := New(48000, cfg)
	s.SetTarget(0.5)
	require.Equal(t, 0.5, s.Process())
}

func TestSmootherProcessBlockFillsAllSamples(t *testing.T) {
	s := New(48000, DefaultConfig())
	out := make([]float64, 2048) // a 0->1 jump ramps over 2x20ms = 1920 samples
	s.ProcessBlock(out, 1.0)
	require.Equal(t, 1.0, out[len(out)-1])
}

func TestSmootherSnapToTarget(t *testing.T) {
	s := New(48000, DefaultConfig())
	s.SetTarget(0.9)
	s.SnapToTarget()
	require.Equal(t, 0.9, s.Process())
}
