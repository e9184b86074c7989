// Package master implements the Master Chain (§4.9): mono-low crossover,
// LUFS loudness normalization, and peak limiting, run in that fixed order
// over the summed slot + FX-bus output.
package master

import (
	"github.com/gridsynth/ether-core/internal/dsp"
)

// MonoLow is a Linkwitz-Riley 4th-order crossover that mono-sums stereo
// content below the crossover frequency while preserving stereo above it,
// grounded on original_source's MonoLowProcessor.h.
type MonoLow struct {
	sampleRate float64
	crossover  float64

	lowL1, lowL2   *dsp.Biquad
	lowR1, lowR2   *dsp.Biquad
	highL1, highL2 *dsp.Biquad
	highR1, highR2 *dsp.Biquad
}

const defaultCrossoverHz = 120

// NewMonoLow creates a mono-low processor at the default 120Hz crossover.
func NewMonoLow(sampleRate float64) *MonoLow {
	m := &MonoLow{sampleRate: sampleRate}
	m.SetCrossover(defaultCrossoverHz)
	return m
}

// SetCrossover retunes the crossover frequency. A Linkwitz-Riley 4th-order
// crossover is built from two cascaded Butterworth (Q=0.707) stages per
// band, which is why each side carries two biquads.
func (m *MonoLow) SetCrossover(hz float64) {
	m.crossover = hz
	m.lowL1 = dsp.NewBiquad(m.sampleRate, dsp.LowPass, hz, 0.707)
	m.lowL2 = dsp.NewBiquad(m.sampleRate, dsp.LowPass, hz, 0.707)
	m.lowR1 = dsp.NewBiquad(m.sampleRate, dsp.LowPass, hz, 0.707)
	m.lowR2 = dsp.NewBiquad(m.sampleRate, dsp.LowPass, hz, 0.707)
	m.highL1 = dsp.NewBiquad(m.sampleRate, dsp.HighPass, hz, 0.707)
	m.highL2 = dsp.NewBiquad(m.sampleRate, dsp.HighPass, hz, 0.707)
	m.highR1 = dsp.NewBiquad(m.sampleRate, dsp.HighPass, hz, 0.707)
	m.highR2 = dsp.NewBiquad(m.sampleRate, dsp.HighPass, hz, 0.707)
}

// Crossover returns the current crossover frequency in Hz.
func (m *MonoLow) Crossover() float64 { return m.crossover }

// ProcessSample splits inL/inR into low (mono-summed) and high (stereo
// preserved) bands and recombines them.
func (m *MonoLow) ProcessSample(inL, inR float64) (outL, outR float64) {
	lowL := m.lowL2.Process(m.lowL1.Process(inL))
	lowR := m.lowR2.Process(m.lowR1.Process(inR))
	mono := (lowL + lowR) * 0.5

	highL := m.highL2.Process(m.highL1.Process(inL))
	highR := m.highR2.Process(m.highR1.Process(inR))

	outL = dsp.Sanitize(mono + highL)
	outR = dsp.Sanitize(mono + highR)
	return
}

// kWeighting applies the K-weighting pre-filter (high-shelf + highpass)
// used ahead of the LUFS integrator, grounded on original_source's
// LUFSNormalizer.h K-weighting stage.
type kWeighting struct {
	shelf *dsp.Biquad
	hp    *dsp.Biquad
}

func newKWeighting(sampleRate float64) *kWeighting {
	k := &kWeighting{}
	// Approximate the ITU-R BS.1770 pre-filter with a high-shelf boost above
	// ~1.5kHz and a highpass around 60Hz; the exact BS.1770 coefficients
	// require a shelf biquad form not in dsp.Biquad's kind set, so this
	// approximates the perceptual effect with the primitives on hand.
	k.shelf = dsp.NewBiquad(sampleRate, dsp.HighPass, 1500, 0.5)
	k.hp = dsp.NewBiquad(sampleRate, dsp.HighPass, 60, 0.707)
	return k
}

func (k *kWeighting) process(in float64) float64 {
	boosted := in + k.shelf.Process(in)*0.5
	return k.hp.Process(boosted)
}
