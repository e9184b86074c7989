package param

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMappingRoundTrips(t *testing.T) {
	cases := []struct {
		name string
		mp   func(float64) float64
		un   func(float64) float64
	}{
		{"cutoff", MapCutoff, UnmapCutoff},
		{"audioFrequency", MapAudioFrequency, UnmapAudioFrequency},
		{"lfoRate", MapLFORate, UnmapLFORate},
		{"resonance", MapResonance, UnmapResonance},
		{"envelopeTime", MapEnvelopeTime, UnmapEnvelopeTime},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				x := rapid.Float64Range(0, 1).Draw(rt, "x")
				got := c.un(c.mp(x))
				require.InDelta(t, x, got, 1e-3)
			})
		})
	}
}

func TestDetuneCentsRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		x := rapid.Float64Range(0, 1).Draw(rt, "x")
		got := UnmapDetuneCents(MapDetuneCents(x))
		require.InDelta(t, x, got, 1e-3)
	})
}

func TestQuantizeEnumeratedIsIdempotentWithinBucket(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 16).Draw(rt, "n")
		x1 := rapid.Float64Range(0, 1).Draw(rt, "x1")
		bucket := int(x1 * float64(n))
		if bucket >= n {
			bucket = n - 1
		}
		lo := float64(bucket) / float64(n)
		hi := float64(bucket+1) / float64(n)
		if hi > 1 {
			hi = 1
		}
		x2 := lo + (hi-lo)*0.5
		require.Equal(t, QuantizeEnumerated(x1, n), QuantizeEnumerated(x2, n))
	})
}

func TestNoteFrequencyRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		note := rapid.Float64Range(0, 127).Draw(rt, "note")
		got := FrequencyToNote(NoteToFrequency(note))
		require.InDelta(t, note, got, 1e-6)
	})
}
