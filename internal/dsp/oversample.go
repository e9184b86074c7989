package dsp

// halfBandTaps is a 15-tap half-band FIR lowpass used for both the
// upsampling interpolation filter and the downsampling decimation filter.
// Its taps sum to 0.982, so its DC gain is slightly below unity.
var halfBandTaps = []float64{
	-0.0052, 0, 0.0296, 0, -0.0994, 0, 0.3160, 0.5,
	0.3160, 0, -0.0994, 0, 0.0296, 0, -0.0052,
}

// Oversampler implements polyphase 2x or 4x up/down sampling around a
// nonlinear processing stage (FM operators, saturation), so that aliasing
// from the nonlinearity falls above the audible band before decimation.
type Oversampler struct {
	factor   int // 2 or 4
	upState  []float64
	dnState  []float64
}

// NewOversampler creates an oversampler for the given factor (2 or 4;
// any other value is clamped to 2).
func NewOversampler(factor int) *Oversampler {
	if factor != 2 && factor != 4 {
		factor = 2
	}
	return &Oversampler{
		factor:  factor,
		upState: make([]float64, len(halfBandTaps)),
		dnState: make([]float64, len(halfBandTaps)),
	}
}

// Factor returns the configured oversampling factor.
func (o *Oversampler) Factor() int { return o.factor }

// Process upsamples one input sample to Factor() samples, applies fn to
// each (the nonlinear stage under oversampling), then decimates back to a
// single output sample.
func (o *Oversampler) Process(in float64, fn func(float64) float64) float64 {
	up := make([]float64, o.factor)
	up[0] = in * float64(o.factor)
	for i := 1; i < o.factor; i++ {
		up[i] = 0
	}
	for i := range up {
		up[i] = o.filterStage(up[i], o.upState)
		up[i] = fn(up[i])
	}
	var out float64
	for _, s := range up {
		out = o.filterStage(s, o.dnState)
	}
	return out
}

func (o *Oversampler) filterStage(in float64, state []float64) float64 {
	copy(state[1:], state[:len(state)-1])
	state[0] = in
	var acc float64
	for i, tap := range halfBandTaps {
		acc += tap * state[i]
	}
	return Sanitize(acc)
}

// Reset clears the filter delay lines.
func (o *Oversampler) Reset() {
	for i := range o.upState {
		o.upState[i] = 0
		o.dnState[i] = 0
	}
}
