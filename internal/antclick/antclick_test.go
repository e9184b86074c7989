package antclick

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscontinuityBelowThresholdDoesNotRamp(t *testing.T) {
	c := New(48000, 4, DefaultConfig())
	c.OnDiscontinuity(0, 0.5, 0.51)
	require.False(t, c.IsRamping(0))
}

func TestDiscontinuityAboveThresholdRampsThenSettles(t *testing.T) {
	c := New(48000, 4, DefaultConfig())
	c.OnDiscontinuity(0, 0.1, 0.9)
	require.True(t, c.IsRamping(0))

	for i := 0; i < 1000; i++ {
		c.ProcessSample(0, 1.0)
	}
	require.False(t, c.IsRamping(0))
}

func TestProcessSampleOutOfRangeVoiceIsNoop(t *testing.T) {
	c := New(48000, 2, DefaultConfig())
	require.Equal(t, 0.42, c.ProcessSample(99, 0.42))
	require.False(t, c.IsRamping(99))
}

func TestLinearRampInterpolatesMonotonically(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RampType = RampLinear
	c := New(48000, 1, cfg)
	c.OnDiscontinuity(0, 0, 1)

	var prev float64 = -1
	for i := 0; i < 20; i++ {
		out := c.ProcessSample(0, 1.0)
		require.GreaterOrEqual(t, out, prev)
		prev = out
	}
}
