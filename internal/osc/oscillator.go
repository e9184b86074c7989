// Package osc provides the virtual-analog oscillator and FM operator
// primitives shared by the engine implementations.
package osc

import "math"

// Waveform selects the virtual-analog oscillator's output shape.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSaw
	WaveSquare
	WaveTriangle
)

// Oscillator is a phase-accumulator virtual-analog oscillator with
// polyblep-free naive waveform generation and pulse-width modulation on the
// square wave, matching VirtualAnalogOscillator.h.
type Oscillator struct {
	sampleRate float64
	phase      float64
	freq       float64
	wave       Waveform
	pulseWidth float64
}

// New creates an oscillator at the given sample rate.
func New(sampleRate float64) *Oscillator {
	return &Oscillator{sampleRate: sampleRate, pulseWidth: 0.5, wave: WaveSine}
}

// SetWaveform selects the output shape.
func (o *Oscillator) SetWaveform(w Waveform) { o.wave = w }

// SetFrequency sets the oscillator frequency in Hz.
func (o *Oscillator) SetFrequency(hz float64) { o.freq = hz }

// SetPulseWidth sets the square wave's duty cycle in (0,1), only meaningful
// for WaveSquare.
func (o *Oscillator) SetPulseWidth(pw float64) {
	if pw < 0.01 {
		pw = 0.01
	}
	if pw > 0.99 {
		pw = 0.99
	}
	o.pulseWidth = pw
}

// ResetPhase zeros the phase accumulator (engines call it on note-on so
// each note starts from phase 0).
func (o *Oscillator) ResetPhase() { o.phase = 0 }

// Phase returns the current phase in [0,1).
func (o *Oscillator) Phase() float64 { return o.phase }

// SetPhase forces the phase accumulator, used for phase-continuous engine
// switching.
func (o *Oscillator) SetPhase(p float64) {
	o.phase = p - math.Floor(p)
}

// Process advances the oscillator by one sample and returns its output in
// [-1,1].
func (o *Oscillator) Process() float64 {
	if o.sampleRate <= 0 {
		return 0
	}
	var out float64
	switch o.wave {
	case WaveSaw:
		out = 2*o.phase - 1
	case WaveSquare:
		if o.phase < o.pulseWidth {
			out = 1
		} else {
			out = -1
		}
	case WaveTriangle:
		out = 1 - 4*math.Abs(o.phase-0.5)
	default:
		out = math.Sin(2 * math.Pi * o.phase)
	}
	o.phase += o.freq / o.sampleRate
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}
	return out
}

// ProcessPM advances the oscillator with an external phase-modulation input
// (in cycles) added to the phase before sampling, used by FM algorithms that
// route one operator's output into another's phase.
func (o *Oscillator) ProcessPM(modCycles float64) float64 {
	if o.sampleRate <= 0 {
		return 0
	}
	p := o.phase + modCycles
	p -= math.Floor(p)
	out := math.Sin(2 * math.Pi * p)
	o.phase += o.freq / o.sampleRate
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}
	return out
}
